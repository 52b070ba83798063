// RTLPAGER - An rtl-sdr receiver for POCSAG and FLEX pagers.
// Copyright (C) 2015 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package forward

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bemasher/rtlpager/parse"
)

// HTTPSender posts each message as a JSON document to a fixed URL.
type HTTPSender struct {
	url    string
	client *resty.Client
}

func NewHTTPSender(url string, timeout time.Duration, log logrus.FieldLogger) *HTTPSender {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetLogger(log)

	return &HTTPSender{url: url, client: client}
}

func (s *HTTPSender) Name() string {
	return "POST"
}

func (s *HTTPSender) URL() string {
	return s.url
}

// Send posts msg and treats any status outside 2xx as a failure. The
// response body is not read.
func (s *HTTPSender) Send(ctx context.Context, msg parse.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "encode message")
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		SetDoNotParseResponse(true).
		Post(s.url)
	if err != nil {
		return err
	}
	resp.RawBody().Close()

	if !resp.IsSuccess() {
		return errors.Errorf("HTTP %s", resp.Status())
	}

	return nil
}

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

// Package pocsag recognizes POCSAG pages in multimon-ng output.
//
// multimon-ng prints one line per page:
//
//	POCSAG1200: Address: 1234567  Function: 3  Alpha:   Call 555-0100
//	POCSAG512: Address:   12345  Function: 0  Numeric: 5550100
//	POCSAG2400: Address: 1234567  Function: 1
//
// The last form is a tone-only page and carries no content.
package pocsag

import (
	"regexp"
	"strconv"

	"github.com/bemasher/rtlpager/parse"
)

func init() {
	parse.Register("pocsag", NewParser)
}

var (
	alpha   = regexp.MustCompile(`^POCSAG(\d+): Address:\s+(\d+)\s+Function:\s+(\d)\s+Alpha:\s+(.*)`)
	numeric = regexp.MustCompile(`^POCSAG(\d+): Address:\s+(\d+)\s+Function:\s+(\d)\s+Numeric:\s+(.*)`)
	tone    = regexp.MustCompile(`^POCSAG(\d+): Address:\s+(\d+)\s+Function:\s+(\d)\s*$`)
)

// Modes enabled on the decoder for POCSAG reception.
var Modes = []string{"POCSAG512", "POCSAG1200", "POCSAG2400"}

type Parser struct {
	patterns []*regexp.Regexp
}

func NewParser() parse.Parser {
	// Order matters: alpha and numeric before tone-only.
	return Parser{[]*regexp.Regexp{alpha, numeric, tone}}
}

func (p Parser) Modes() []string {
	return Modes
}

func (p Parser) Parse(line string) (msg parse.Message, ok bool) {
	for _, re := range p.patterns {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		baud, err := strconv.Atoi(m[1])
		if err != nil {
			return parse.Message{}, false
		}

		addr, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			return parse.Message{}, false
		}

		function, _ := strconv.Atoi(m[3])

		msg = parse.Message{
			Protocol: parse.POCSAG,
			Address:  uint32(addr),
			Function: function,
			BaudRate: baud,
		}

		// Tone-only pages have no content group.
		if len(m) > 4 {
			msg.Content = m[4]
		}

		return msg, true
	}

	return parse.Message{}, false
}

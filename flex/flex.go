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

// Package flex recognizes FLEX pages in multimon-ng output, e.g.
//
//	FLEX: 2024-01-01 12:00:00 1600/2/A 01.027 [001234567] ALN Call 555-0100
//
// Everything between the FLEX prefix and the bracketed capcode is ignored,
// including the reported signalling rate.
package flex

import (
	"regexp"
	"strconv"

	"github.com/bemasher/rtlpager/parse"
)

// BaudRate is reported for every FLEX message regardless of the rate the
// decoder printed.
const BaudRate = 1600

func init() {
	parse.Register("flex", NewParser)
}

var page = regexp.MustCompile(`^FLEX.*\[(\d+)\]\s*(.*)`)

type Parser struct{}

func NewParser() parse.Parser {
	return Parser{}
}

func (p Parser) Modes() []string {
	return []string{"FLEX"}
}

func (p Parser) Parse(line string) (parse.Message, bool) {
	m := page.FindStringSubmatch(line)
	if m == nil {
		return parse.Message{}, false
	}

	capcode, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return parse.Message{}, false
	}

	return parse.Message{
		Protocol: parse.FLEX,
		Address:  uint32(capcode),
		Function: 0,
		BaudRate: BaudRate,
		Content:  m[2],
	}, true
}

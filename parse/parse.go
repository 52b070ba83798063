package parse

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bemasher/rtlpager/csv"
)

const (
	TimeFormat = "2006-01-02T15:04:05.000"
)

var (
	parserMutex sync.Mutex
	parsers     = make(map[string]NewParserFunc)
)

type NewParserFunc func() Parser

// Register makes a line parser available by name. Protocol packages call it
// from init.
func Register(name string, parserFn NewParserFunc) {
	parserMutex.Lock()
	defer parserMutex.Unlock()

	if parserFn == nil {
		panic("parser: new parser func is nil")
	}
	if _, dup := parsers[name]; dup {
		panic(fmt.Sprintf("parser: parser already registered (%s)", name))
	}
	parsers[name] = parserFn
}

func NewParser(name string) (Parser, error) {
	parserMutex.Lock()
	defer parserMutex.Unlock()

	if parserFn, exists := parsers[name]; exists {
		return parserFn(), nil
	}

	return nil, fmt.Errorf("invalid message type: %q", name)
}

// Registered returns the sorted names of all registered parsers.
func Registered() (names []string) {
	parserMutex.Lock()
	defer parserMutex.Unlock()

	for name := range parsers {
		names = append(names, name)
	}
	sort.Strings(names)

	return
}

// A Parser recognizes decoder output lines of a single protocol family.
type Parser interface {
	// Parse returns the message carried by line, ok is false if line is not
	// one of the parser's patterns.
	Parse(line string) (msg Message, ok bool)

	// Modes lists the decoder mode names the parser needs enabled.
	Modes() []string
}

// Chain tries each parser in order, the first match wins.
type Chain []Parser

// NewChain builds a chain from registered parser names, preserving the given
// order.
func NewChain(names ...string) (c Chain, err error) {
	for _, name := range names {
		p, err := NewParser(name)
		if err != nil {
			return nil, err
		}
		c = append(c, p)
	}

	return c, nil
}

// Parse trims line and returns the first message any parser in the chain
// extracts from it. Blank lines never match.
func (c Chain) Parse(line string) (Message, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Message{}, false
	}

	for _, p := range c {
		if msg, ok := p.Parse(line); ok {
			return msg, true
		}
	}

	return Message{}, false
}

// Modes returns the decoder modes of every parser in the chain.
func (c Chain) Modes() (modes []string) {
	for _, p := range c {
		modes = append(modes, p.Modes()...)
	}
	return
}

type Protocol string

const (
	POCSAG Protocol = "POCSAG"
	FLEX   Protocol = "FLEX"
)

// Message is a single decoded page.
type Message struct {
	Protocol Protocol `xml:",attr"`
	Address  uint32   `xml:",attr"`
	Function int      `xml:",attr"`
	BaudRate int      `xml:",attr"`
	Content  string
}

type payload struct {
	Protocol Protocol `json:"protocol"`
	Capcode  uint32   `json:"capcode"`
	Address  uint32   `json:"address"`
	Function int      `json:"function"`
	Content  string   `json:"content"`
	BaudRate int      `json:"baudRate"`
}

// MarshalJSON encodes the message in the form receivers expect, capcode and
// address always carry the same value.
func (msg Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(payload{
		Protocol: msg.Protocol,
		Capcode:  msg.Address,
		Address:  msg.Address,
		Function: msg.Function,
		Content:  msg.Content,
		BaudRate: msg.BaudRate,
	})
}

// Mode is the protocol and baud rate as the decoder names it, e.g. POCSAG1200.
func (msg Message) Mode() string {
	return string(msg.Protocol) + strconv.Itoa(msg.BaudRate)
}

func (msg Message) String() string {
	return fmt.Sprintf("{Address:%8d Function:%d Content:%q}", msg.Address, msg.Function, msg.Content)
}

func (msg Message) Record() (r []string) {
	r = append(r, string(msg.Protocol))
	r = append(r, strconv.Itoa(msg.BaudRate))
	r = append(r, strconv.FormatUint(uint64(msg.Address), 10))
	r = append(r, strconv.Itoa(msg.Function))
	r = append(r, msg.Content)

	return
}

// LogMessage is a message stamped with the time it was received.
type LogMessage struct {
	Time time.Time
	Message
}

func (msg LogMessage) String() string {
	return fmt.Sprintf("{Time:%s %s:%s}", msg.Time.Format(TimeFormat), msg.Mode(), msg.Message)
}

func (msg LogMessage) Record() (r []string) {
	r = append(r, msg.Time.Format(time.RFC3339Nano))
	r = append(r, msg.Message.Record()...)
	return r
}

// MarshalJSON keeps the receive time alongside the message fields.
func (msg LogMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Time time.Time `json:"time"`
		payload
	}{
		msg.Time,
		payload{
			Protocol: msg.Protocol,
			Capcode:  msg.Address,
			Address:  msg.Address,
			Function: msg.Function,
			Content:  msg.Content,
			BaudRate: msg.BaudRate,
		},
	})
}

var _ csv.Recorder = LogMessage{}

type FilterChain []MessageFilter

func (fc *FilterChain) Add(filter MessageFilter) {
	*fc = append(*fc, filter)
}

func (fc FilterChain) Match(msg Message) bool {
	if len(fc) == 0 {
		return true
	}

	for _, filter := range fc {
		if !filter.Filter(msg) {
			return false
		}
	}

	return true
}

type MessageFilter interface {
	Filter(Message) bool
}

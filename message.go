package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type frameClass int

const (
	classBroadcast frameClass = iota
	classPing
	classDirect
)

// frame is one inbound payload, decoded exactly once at the router
// boundary. Broadcast frames carry only the raw bytes; ping frames keep
// the decoded elements for the latency rewrite; direct frames carry the
// playerID -> sub-payload target map.
type frame struct {
	class   frameClass
	raw     []byte
	elems   []json.RawMessage
	targets map[string]json.RawMessage
}

// decodeFrame classifies a payload by the tag in element 0 of its JSON
// array form. Anything that is not an array, has no tag, or carries an
// unrecognized tag is a broadcast frame. The only error case is a
// "direct" payload whose target map is missing, null, or unparsable;
// such a message is dropped by the caller, never bounced to the
// broadcast path.
func decodeFrame(raw []byte) (frame, error) {
	f := frame{class: classBroadcast, raw: raw}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || len(elems) == 0 {
		return f, nil
	}
	var tag string
	if err := json.Unmarshal(elems[0], &tag); err != nil {
		return f, nil
	}

	switch strings.ToLower(tag) {
	case tagPing:
		f.class = classPing
		f.elems = elems
	case tagDirect:
		if len(elems) < 2 {
			return f, errors.New("direct targets: missing")
		}
		targets := make(map[string]json.RawMessage)
		if err := json.Unmarshal(elems[1], &targets); err != nil {
			return f, fmt.Errorf("direct targets: %w", err)
		}
		// a JSON null leaves the map nil without an unmarshal error
		if targets == nil {
			return f, errors.New("direct targets: null")
		}
		f.class = classDirect
		f.elems = elems
		f.targets = targets
	}
	return f, nil
}

// withLatency renders a ping payload with element 1 replaced by sum,
// appending it when the original had no element 1. Every other element
// keeps its original bytes.
func (f frame) withLatency(sum int) []byte {
	elems := make([]json.RawMessage, len(f.elems))
	copy(elems, f.elems)

	val := json.RawMessage(strconv.Itoa(sum))
	if len(elems) < 2 {
		elems = append(elems, val)
	} else {
		elems[1] = val
	}

	var b bytes.Buffer
	b.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(e)
	}
	b.WriteByte(']')
	return b.Bytes()
}

package main

import (
	"testing"
)

func TestDecodeFrameBroadcast(t *testing.T) {
	payloads := [][]byte{
		[]byte("plain text, not json"),
		[]byte(`{"cmd":"move"}`),
		[]byte(`[]`),
		[]byte(`["move",1,2]`),
		[]byte(`[5,"x"]`),
	}
	for _, p := range payloads {
		f, err := decodeFrame(p)
		if err != nil {
			t.Fatal("Expectation: no error, Received:", err)
		}
		if f.class != classBroadcast {
			t.Fatal("Expectation: classBroadcast, Received:", f.class, "for", string(p))
		}
		if string(f.raw) != string(p) {
			t.Fatal("Expectation: raw bytes preserved, Received:", string(f.raw))
		}
	}
}

func TestDecodeFramePing(t *testing.T) {
	f, err := decodeFrame([]byte(`["ping",12]`))
	if err != nil {
		t.Fatal("Expectation: no error, Received:", err)
	}
	if f.class != classPing {
		t.Fatal("Expectation: classPing, Received:", f.class)
	}
	if len(f.elems) != 2 {
		t.Fatal("Expectation: 2, Received:", len(f.elems))
	}

	// tags match case-insensitively
	f, err = decodeFrame([]byte(`["PING"]`))
	if err != nil || f.class != classPing {
		t.Fatal("Expectation: classPing for PING, Received:", f.class, err)
	}
}

func TestDecodeFrameDirect(t *testing.T) {
	f, err := decodeFrame([]byte(`["direct",{"p1":"hello","p2":[1,2]}]`))
	if err != nil {
		t.Fatal("Expectation: no error, Received:", err)
	}
	if f.class != classDirect {
		t.Fatal("Expectation: classDirect, Received:", f.class)
	}
	if string(f.targets["p1"]) != `"hello"` {
		t.Fatal(`Expectation: "hello", Received:`, string(f.targets["p1"]))
	}
	if string(f.targets["p2"]) != `[1,2]` {
		t.Fatal("Expectation: [1,2], Received:", string(f.targets["p2"]))
	}
}

func TestDecodeFrameDirectMalformed(t *testing.T) {
	// a direct frame without a target map is an error, not a broadcast
	if _, err := decodeFrame([]byte(`["direct"]`)); err == nil {
		t.Fatal("Expectation: error for missing targets, Received: nil")
	}
	if _, err := decodeFrame([]byte(`["direct",[1,2]]`)); err == nil {
		t.Fatal("Expectation: error for non-object targets, Received: nil")
	}
	if _, err := decodeFrame([]byte(`["direct",null]`)); err == nil {
		t.Fatal("Expectation: error for null targets, Received: nil")
	}
}

func TestWithLatency(t *testing.T) {
	f, _ := decodeFrame([]byte(`["ping",0,{"a": 1}]`))
	got := string(f.withLatency(37))
	if got != `["ping",37,{"a": 1}]` {
		t.Fatal(`Expectation: ["ping",37,{"a": 1}], Received:`, got)
	}

	// element 1 is appended when the original had none
	f, _ = decodeFrame([]byte(`["ping"]`))
	got = string(f.withLatency(12))
	if got != `["ping",12]` {
		t.Fatal(`Expectation: ["ping",12], Received:`, got)
	}
}

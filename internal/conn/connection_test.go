package conn

import "testing"

func TestTryParseHeadersWaitsForTerminator(t *testing.T) {
	c := New(3, 1, "127.0.0.1:1234")
	c.AppendRead([]byte("GET / HTTP/1.1\r\nHost: x\r\n"))

	ok, err := c.TryParseHeaders()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected headers not yet complete")
	}
}

func TestTryParseHeadersCompletesAndBuffersLeftoverBody(t *testing.T) {
	c := New(3, 1, "127.0.0.1:1234")
	c.AppendRead([]byte("POST /x HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"))

	ok, err := c.TryParseHeaders()
	if err != nil || !ok {
		t.Fatalf("expected headers complete, err=%v", err)
	}
	if c.Request.Method != "POST" {
		t.Fatalf("got method %q", c.Request.Method)
	}
	if string(c.Request.Body) != "hello" {
		t.Fatalf("got body %q", c.Request.Body)
	}
}

func TestAppendReadAfterHeadersGoesToBody(t *testing.T) {
	c := New(3, 1, "127.0.0.1:1234")
	c.AppendRead([]byte("POST /x HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc"))
	if ok, err := c.TryParseHeaders(); err != nil || !ok {
		t.Fatalf("expected headers complete, err=%v", err)
	}
	c.AppendRead([]byte("defghij"))
	if string(c.Request.Body) != "abcdefghij" {
		t.Fatalf("got body %q", c.Request.Body)
	}
}

func TestTryParseHeadersMalformedStartLine(t *testing.T) {
	c := New(3, 1, "127.0.0.1:1234")
	c.AppendRead([]byte("GARBAGE\r\n\r\n"))
	_, err := c.TryParseHeaders()
	if err == nil {
		t.Fatalf("expected malformed start line error")
	}
}

func TestQueueResponseAndDrain(t *testing.T) {
	c := New(3, 1, "127.0.0.1:1234")
	c.Response.Status = 200
	c.Response.Reason = "OK"
	c.Response.Body = []byte("hi")
	c.Response.SetContentLength(2)
	c.QueueResponse()

	if c.WriteDone() {
		t.Fatalf("expected writes pending")
	}
	pending := c.PendingWrite()
	c.Advance(len(pending))
	if !c.WriteDone() {
		t.Fatalf("expected write done after advancing full buffer")
	}
}

func TestLoneLFTerminatorTolerated(t *testing.T) {
	c := New(3, 1, "127.0.0.1:1234")
	c.AppendRead([]byte("GET / HTTP/1.1\nHost: x\n\n"))
	ok, err := c.TryParseHeaders()
	if err != nil || !ok {
		t.Fatalf("expected lone-LF terminator to be tolerated, err=%v", err)
	}
}

package console

import (
	"bufio"
	"io"
)

// lineFeed reads r line by line on one goroutine for the life of the
// reader. It outlives a single Run so no line is lost between runs.
type lineFeed struct {
	r     io.Reader
	lines chan string
	errc  chan error // closed after the terminal error is sent
}

func newLineFeed(r io.Reader) *lineFeed {
	f := &lineFeed{r: r, lines: make(chan string), errc: make(chan error, 1)}
	go f.scan()
	return f
}

func (f *lineFeed) scan() {
	sc := bufio.NewScanner(f.r)
	for sc.Scan() {
		f.lines <- sc.Text()
	}
	f.errc <- sc.Err()
	close(f.errc)
}

// feed returns the line feed for r, starting one on first use or when the
// reader changes.
func (c *Console) feed(r io.Reader) *lineFeed {
	if c.in == nil || c.in.r != r {
		c.in = newLineFeed(r)
	}
	return c.in
}

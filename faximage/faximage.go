// Package faximage implements the page source/sink contract of spec §1
// ("the page image itself is treated as a page source/sink contract, not
// re-implemented"). It supplies t30.Config's NextPageByte/OnPageByte/
// NextECMFrame/OnECMFrame callbacks from an in-memory page Source, and
// FileSink writes each received page's raw bytes to its own ".t4" file,
// named with a strftime pattern the way the teacher names its log files.
// No TIFF/F container is read or written.
package faximage

import (
	"fmt"
	"os"
	"time"

	"github.com/lestrrat-go/strftime"
)

// Page is one decoded fax page's raw T.4/T.6-coded scanline bytes, handed
// to or pulled from a Source/Sink without further interpretation — spec §1
// excludes the T.4/T.6 image codec itself from this stack's scope.
type Page struct {
	Bytes []byte
}

// Source supplies outgoing pages in order.
type Source interface {
	NextPage() (Page, bool)
}

// Sink accepts incoming pages in order.
type Sink interface {
	PutPage(Page) error
}

// MemorySource/MemorySink back Source/Sink with an in-memory page slice,
// useful for tests and the loopback transport scenario.
type MemorySource struct {
	Pages []Page
	idx   int
}

func (s *MemorySource) NextPage() (Page, bool) {
	if s.idx >= len(s.Pages) {
		return Page{}, false
	}
	var p = s.Pages[s.idx]
	s.idx++
	return p, true
}

type MemorySink struct {
	Pages []Page
}

func (s *MemorySink) PutPage(p Page) error {
	s.Pages = append(s.Pages, p)
	return nil
}

// FileSink persists each completed page to its own file, named by
// expanding NamePattern (a strftime pattern, e.g. "fax-%Y%m%d-%H%M%S") and
// appending a zero-padded page number and a ".t4" suffix. The file holds
// the page's raw bytes, not a TIFF/F container.
type FileSink struct {
	Dir         string
	NamePattern string
	page        int
}

func (s *FileSink) PutPage(p Page) error {
	var base, err = strftime.Format(s.NamePattern, time.Now())
	if err != nil {
		return err
	}
	var name = fmt.Sprintf("%s/%s-p%03d.t4", s.Dir, base, s.page)
	s.page++
	return os.WriteFile(name, p.Bytes, 0o644)
}

// ByteStreamAdapter exposes a Page as a sequential byte stream matching
// t30.Config's NextPageByte/OnPageByte/NextECMFrame/OnECMFrame shapes.
type ByteStreamAdapter struct {
	src     Source
	sink    Sink
	cur     Page
	curIdx  int
	haveCur bool
	recvBuf []byte
}

func NewByteStreamAdapter(src Source, sink Sink) *ByteStreamAdapter {
	return &ByteStreamAdapter{src: src, sink: sink}
}

// NextPageByte implements t30.Config.NextPageByte for non-ECM transmit.
func (a *ByteStreamAdapter) NextPageByte() (byte, bool) {
	if !a.haveCur {
		var p, ok = a.src.NextPage()
		if !ok {
			return 0, false
		}
		a.cur = p
		a.curIdx = 0
		a.haveCur = true
	}
	if a.curIdx >= len(a.cur.Bytes) {
		a.haveCur = false
		return a.NextPageByte()
	}
	var b = a.cur.Bytes[a.curIdx]
	a.curIdx++
	return b, true
}

// HasMorePages implements t30.Config.HasMorePages by peeking the source.
func (a *ByteStreamAdapter) HasMorePages() bool {
	if a.haveCur && a.curIdx < len(a.cur.Bytes) {
		return true
	}
	var p, ok = a.src.NextPage()
	if !ok {
		return false
	}
	a.cur = p
	a.curIdx = 0
	a.haveCur = true
	return true
}

// OnPageByte implements t30.Config.OnPageByte for non-ECM receive.
func (a *ByteStreamAdapter) OnPageByte(b byte) {
	a.recvBuf = append(a.recvBuf, b)
}

// NextECMFrame implements t30.Config.NextECMFrame for ECM transmit.
func (a *ByteStreamAdapter) NextECMFrame(maxLen int) ([]byte, bool) {
	if !a.haveCur {
		var p, ok = a.src.NextPage()
		if !ok {
			return nil, false
		}
		a.cur = p
		a.curIdx = 0
		a.haveCur = true
	}
	if a.curIdx >= len(a.cur.Bytes) {
		a.haveCur = false
		return nil, false
	}
	var end = a.curIdx + maxLen
	if end > len(a.cur.Bytes) {
		end = len(a.cur.Bytes)
	}
	var chunk = a.cur.Bytes[a.curIdx:end]
	a.curIdx = end
	return chunk, true
}

// OnECMFrame implements t30.Config.OnECMFrame for ECM receive.
func (a *ByteStreamAdapter) OnECMFrame(payload []byte) {
	a.recvBuf = append(a.recvBuf, payload...)
}

// FinishPage flushes the accumulated receive buffer to the sink as one
// completed page, called from Config.OnDocumentHandler on DocumentPageDone.
func (a *ByteStreamAdapter) FinishPage() error {
	var p = Page{Bytes: a.recvBuf}
	a.recvBuf = nil
	return a.sink.PutPage(p)
}

package faximage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteStreamAdapterNonECMRoundTrip(t *testing.T) {
	var src = &MemorySource{Pages: []Page{{Bytes: []byte("hello, fax")}}}
	var sink = &MemorySink{}
	var a = NewByteStreamAdapter(src, sink)

	var got []byte
	for {
		var b, ok = a.NextPageByte()
		if !ok {
			break
		}
		got = append(got, b)
	}
	assert.Equal(t, []byte("hello, fax"), got)
	assert.False(t, a.HasMorePages())
}

func TestByteStreamAdapterECMRoundTrip(t *testing.T) {
	var page = make([]byte, 300)
	for i := range page {
		page[i] = byte(i)
	}
	var src = &MemorySource{Pages: []Page{{Bytes: page}}}
	var sink = &MemorySink{}
	var a = NewByteStreamAdapter(src, sink)

	var chunks [][]byte
	for {
		var chunk, ok = a.NextECMFrame(64)
		if !ok {
			break
		}
		chunks = append(chunks, append([]byte{}, chunk...))
	}
	require.Len(t, chunks, 5) // 300 bytes / 64 = 4 full + 1 partial
	for _, c := range chunks {
		a.OnECMFrame(c)
	}
	require.NoError(t, a.FinishPage())
	require.Len(t, sink.Pages, 1)
	assert.Equal(t, page, sink.Pages[0].Bytes)
}

func TestFileSinkWritesNamedFile(t *testing.T) {
	var dir = t.TempDir()
	var sink = &FileSink{Dir: dir, NamePattern: "page"}
	require.NoError(t, sink.PutPage(Page{Bytes: []byte{1, 2, 3}}))
	var entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "page-p000.t4")
}

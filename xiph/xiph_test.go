package xiph

import (
	"testing"

	"github.com/matryer/is"
)

func TestSplitLacedLengths(t *testing.T) {
	is := is.New(t)
	h0 := []byte{1, 2, 3}
	h1 := []byte{4, 5}
	h2 := []byte{6, 7, 8, 9}

	extradata := []byte{byte(len(h0))}
	extradata = append(extradata, byte(len(h1)))
	extradata = append(extradata, h0...)
	extradata = append(extradata, h1...)
	extradata = append(extradata, h2...)

	got, err := Split(extradata, 30)
	is.NoErr(err)
	is.Equal(got[0], h0)
	is.Equal(got[1], h1)
	is.Equal(got[2], h2)
}

func TestSplitTruncated(t *testing.T) {
	is := is.New(t)
	_, err := Split([]byte{5, 10, 1, 2}, 30)
	is.True(err != nil) // truncated extradata must fail
}

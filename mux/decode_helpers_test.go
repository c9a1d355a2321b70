package mux

// A minimal recursive-descent EBML reader used only by this package's own
// tests, to check that the writer produced the element nesting and field
// values the tests expect. It intentionally understands nothing about
// Matroska semantics beyond "id, size, payload".

type element struct {
	id      uint32
	payload []byte
}

func parseElements(data []byte) []element {
	var out []element
	for len(data) > 0 {
		id, n := decodeVintID(data)
		data = data[n:]
		size, n := decodeVintSize(data)
		data = data[n:]
		if uint64(len(data)) < size {
			size = uint64(len(data))
		}
		out = append(out, element{id: id, payload: data[:size]})
		data = data[size:]
	}
	return out
}

func decodeVintID(b []byte) (uint32, int) {
	n := vintWidth(b[0])
	var v uint32
	for i := 0; i < n; i++ {
		v = v<<8 | uint32(b[i])
	}
	return v, n
}

func decodeVintSize(b []byte) (uint64, int) {
	n := vintWidth(b[0])
	first := uint64(b[0] & (0xFF >> uint(n)))
	v := first
	for i := 1; i < n; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v, n
}

func vintWidth(first byte) int {
	n := 1
	for mask := byte(0x80); mask != 0 && first&mask == 0; mask >>= 1 {
		n++
	}
	return n
}

type testDecoder struct {
	data []byte
}

func newTestDecoder(buf []byte) *testDecoder {
	return &testDecoder{data: buf}
}

// mustMaster returns the payload of the first top-level element with id,
// panicking (failing the calling test loudly) if none is found.
func (d *testDecoder) mustMaster(id uint32) []byte {
	for _, e := range parseElements(d.data) {
		if e.id == id {
			return e.payload
		}
	}
	panic("mux test: element not found")
}

// masters returns the payloads of every direct child of parent matching id.
func (d *testDecoder) masters(parent []byte, id uint32) [][]byte {
	var out [][]byte
	for _, e := range parseElements(parent) {
		if e.id == id {
			out = append(out, e.payload)
		}
	}
	return out
}

// uintField returns the unsigned integer value of the first direct child of
// parent matching id.
func (d *testDecoder) uintField(parent []byte, id uint32) uint64 {
	for _, e := range parseElements(parent) {
		if e.id == id {
			var v uint64
			for _, c := range e.payload {
				v = v<<8 | uint64(c)
			}
			return v
		}
	}
	panic("mux test: field not found")
}

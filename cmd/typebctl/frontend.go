package main

import "io"

// serialFrontend implements typeb.Frontend over a serial link to a
// device that does the actual analog sampling/modulation and streams
// primitives back as small framed messages: 'W' + little-endian word
// for a reader transmit, 'S' + signed I + signed Q for a tag sample,
// 'B' + sliced bit for a reader-side bit, 'C' + y/n to toggle the
// sub-carrier. This is the host tool's debug transport, not a claim
// about any particular device's real wire protocol.
type serialFrontend struct {
	port io.ReadWriteCloser
	tick uint32
}

func newSerialFrontend(port io.ReadWriteCloser) *serialFrontend {
	return &serialFrontend{port: port}
}

func (f *serialFrontend) Now() uint32 {
	f.tick++
	return f.tick
}

func (f *serialFrontend) TransmitWord(w uint16) {
	f.port.Write([]byte{'W', byte(w), byte(w >> 8)})
}

func (f *serialFrontend) Sample() (i, q int8, ok bool) {
	var buf [3]byte
	n, err := f.port.Read(buf[:])
	if err != nil || n < 3 || buf[0] != 'S' {
		return 0, 0, false
	}
	return int8(buf[1]), int8(buf[2]), true
}

func (f *serialFrontend) Bit() (bit byte, ok bool) {
	var buf [2]byte
	n, err := f.port.Read(buf[:])
	if err != nil || n < 2 || buf[0] != 'B' {
		return 0, false
	}
	return buf[1], true
}

func (f *serialFrontend) SetSubcarrier(on bool) {
	b := byte('n')
	if on {
		b = 'y'
	}
	f.port.Write([]byte{'C', b})
}

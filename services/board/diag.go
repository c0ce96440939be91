package board

import "radioboard-go/x/conv"

// Console text, byte for byte what the kernel's boot log expects.
const (
	bannerLine   = "\r\n\r\nSystemInit......\r\n"
	memTestStart = "\r\nmem testing...."
	memTestPass  = "\rmem test pass!!\r\n"
)

func serialLine(uid [12]byte) string {
	b := make([]byte, 0, 8+24+2)
	b = append(b, "CPU SN: "...)
	b = conv.AppendHex(b, uid[:])
	b = append(b, "\r\n"...)
	return string(b)
}

func memTestFail(addr uint32) string {
	var buf [8]byte
	return "\rmemtest fail @ " + string(conv.U32Hex(buf[:], addr)) + "\r\nsystem halt!!!!!"
}

func lockFailed(bus string) string {
	return "init " + bus + " lock semaphore failed\n"
}

// print writes to the console once it is open; earlier output is dropped.
func (s *Sequencer) print(line string) {
	if s.con == nil {
		return
	}
	_, _ = s.con.Write([]byte(line))
}

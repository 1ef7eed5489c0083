package xbee

// TranslateByte replaces every from byte in line with to, in place
func TranslateByte(line []byte, from, to byte) {
	for i, b := range line {
		if b == from {
			line[i] = to
		}
	}
}

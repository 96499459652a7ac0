package core

// itoa converts an integer to a string without using fmt package
// This is a lightweight alternative for embedded systems
func itoa(n int) string {
	if n < 0 {
		return "-" + utoa(uint32(-n))
	}
	return utoa(uint32(n))
}

// utoa converts an unsigned integer to a string
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}

	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

const hexDigits = "0123456789abcdef"

// hexBytes renders data as lowercase hex pairs separated by spaces
func hexBytes(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	buf := make([]byte, 0, len(data)*3-1)
	for i, b := range data {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, hexDigits[b>>4], hexDigits[b&0x0F])
	}
	return string(buf)
}

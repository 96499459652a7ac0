package protocol

// CRC16 is the CRC-16/MCRF4XX checksum (reflected 0x1021, initial 0xFFFF)
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, c := range data {
		c ^= byte(crc)
		c ^= c << 4
		w := uint16(c)
		crc = (crc>>8 | w<<8) ^ w<<3 ^ w>>4
	}
	return crc
}

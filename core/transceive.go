package core

// word is the element type of a transfer buffer
type word interface {
	~uint8 | ~uint16
}

// Transceive exchanges n bytes with the selected device. A nil tx clocks
// out FillWord on every step; a nil rx discards what is received. When
// present, tx and rx must hold at least n bytes.
//
// The first expired wait aborts the remaining steps and returns a
// *TimeoutError; nothing is retried.
func (b *Bus) Transceive(tx, rx []byte, n int) error {
	return transceive(b, tx, rx, n)
}

// Transceive16 exchanges n 16-bit words. It is meant for devices set up
// with WordWidth16 on backends reporting Supports16Bit; an 8-bit backend
// only shifts the low byte of each word.
func (b *Bus) Transceive16(tx, rx []uint16, n int) error {
	return transceive(b, tx, rx, n)
}

func transceive[W word](b *Bus, tx, rx []W, n int) error {
	p := b.periph
	txReady := p.TxReady
	rxReady := p.RxReady

	for i := 0; i < n; i++ {
		if !b.wait.Wait(txReady) {
			return b.timeout(StageTxReady, i)
		}

		out := uint32(FillWord)
		if tx != nil {
			out = uint32(tx[i])
		}
		if i+1 == n {
			out |= LastTransfer
		}
		p.WriteWord(out)

		if !b.wait.Wait(rxReady) {
			return b.timeout(StageRxReady, i)
		}

		in := W(p.ReadWord())
		if rx != nil {
			rx[i] = in
		}
	}
	return nil
}

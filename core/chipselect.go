package core

// Select asserts the chip select of dev. On controllers with a decoded
// chip-select bus the decoder is programmed with the active-low one-hot
// code of dev.ID when the id is within the decoder range. The decoder is
// only touched once the pin write has succeeded, so a failed Select
// leaves nothing asserted.
//
// Select must be paired with Deselect on the same device; selecting a
// second device in between is a caller error and is not detected.
func (b *Bus) Select(dev *Device) error {
	if dev.hasPin() {
		if err := b.mustGPIO().SetPin(dev.Pin, false); err != nil {
			return err
		}
	}

	if b.decoder != nil && dev.ID < b.decoder.DecoderRange() {
		b.decoder.SetPeripheralSelect(^(uint8(1) << dev.ID) & NoneSelected)
	}

	RecordEvent(EvtSelect, dev.ID, 0, 0)
	return nil
}

// Deselect waits for the last word to leave the shift register, releases
// the decoder and drives the select line high. The line is released even
// when the wait expires; the expiry is then returned as a TimeoutError.
func (b *Bus) Deselect(dev *Device) error {
	var err error
	if !b.wait.Wait(b.periph.TxEmpty) {
		err = b.timeout(StageTxEmpty, -1)
	}

	if b.decoder != nil {
		b.decoder.SetLastTransfer()
		b.decoder.SetPeripheralSelect(NoneSelected)
	}

	if dev.hasPin() {
		if perr := b.mustGPIO().SetPin(dev.Pin, true); perr != nil {
			return perr
		}
	}

	RecordEvent(EvtDeselect, dev.ID, 0, 0)
	return err
}

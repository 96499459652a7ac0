package serial

import (
	"testing"

	"go.viam.com/test"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyACM0")
	test.That(t, cfg.Device, test.ShouldEqual, "/dev/ttyACM0")
	test.That(t, cfg.Baud, test.ShouldEqual, 250000)
	test.That(t, cfg.ReadTimeout, test.ShouldEqual, 100)
}

func TestOpenRejectsMissingDevice(t *testing.T) {
	_, err := Open(nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = Open(&Config{Baud: 250000})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "device not set")
}

// Package tpm provides read-only TPM 2.0 diagnostics using native Go.
// Sealing and unsealing is the toolchain's job; bulwark only reports
// whether a usable TPM is present and in what state it is.
package tpm

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"
	"github.com/google/go-tpm/tpm2/transport/linuxtpm"
)

// ErrTPMUnavailable indicates the TPM device is not available.
var ErrTPMUnavailable = errors.New("TPM device not available")

// Client provides TPM 2.0 operations.
type Client struct {
	device string
}

// DefaultDevice is the default TPM device path.
const DefaultDevice = "/dev/tpmrm0"

// FallbackDevice is used if the resource manager is unavailable.
const FallbackDevice = "/dev/tpm0"

// New creates a new TPM client.
func New() *Client {
	return &Client{device: DefaultDevice}
}

// NewWithDevice creates a new TPM client with a specific device path.
func NewWithDevice(device string) *Client {
	return &Client{device: device}
}

// WaitForDevice waits for the TPM device to become available.
// Returns true if the device is ready, false if timeout.
func (c *Client) WaitForDevice(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	devices := []string{c.device, FallbackDevice}

	for time.Now().Before(deadline) {
		for _, dev := range devices {
			if _, err := os.Stat(dev); err == nil {
				c.device = dev
				return true
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

// openTPM opens a connection to the TPM device.
func (c *Client) openTPM() (transport.TPMCloser, error) {
	tpm, err := linuxtpm.Open(c.device)
	if err != nil {
		// Try fallback device
		if c.device == DefaultDevice {
			tpm, err = linuxtpm.Open(FallbackDevice)
			if err == nil {
				c.device = FallbackDevice
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTPMUnavailable, err)
	}
	return tpm, nil
}

// Info identifies the TPM implementation.
type Info struct {
	Manufacturer    string
	VendorString    string
	FirmwareVersion string
	SpecRevision    string
}

// GetInfo reads the manufacturer and firmware identification
// properties.
func (c *Client) GetInfo() (*Info, error) {
	tpm, err := c.openTPM()
	if err != nil {
		return nil, err
	}
	defer tpm.Close()

	info := &Info{}

	if v, err := getTPMProperty(tpm, tpm2.TPMPTManufacturer); err == nil {
		info.Manufacturer = propertyString(v)
	}

	var vendor strings.Builder
	for _, prop := range []tpm2.TPMPT{
		tpm2.TPMPTVendorString1,
		tpm2.TPMPTVendorString2,
		tpm2.TPMPTVendorString3,
		tpm2.TPMPTVendorString4,
	} {
		if v, err := getTPMProperty(tpm, prop); err == nil {
			vendor.WriteString(propertyString(v))
		}
	}
	info.VendorString = strings.TrimRight(vendor.String(), "\x00 ")

	fw1, err1 := getTPMProperty(tpm, tpm2.TPMPTFirmwareVersion1)
	fw2, err2 := getTPMProperty(tpm, tpm2.TPMPTFirmwareVersion2)
	if err1 == nil && err2 == nil {
		info.FirmwareVersion = fmt.Sprintf("%d.%d.%d.%d", fw1>>16, fw1&0xffff, fw2>>16, fw2&0xffff)
	}

	if v, err := getTPMProperty(tpm, tpm2.TPMPTRevision); err == nil {
		info.SpecRevision = fmt.Sprintf("%d.%02d", v/100, v%100)
	}

	return info, nil
}

// LockoutStatus contains TPM dictionary attack lockout information.
type LockoutStatus struct {
	InLockout       bool
	LockoutCounter  uint64
	MaxAuthFail     uint64
	LockoutRecovery uint64 // seconds to wait for recovery
}

// GetLockoutStatus reads the TPM lockout status.
func (c *Client) GetLockoutStatus() (*LockoutStatus, error) {
	tpm, err := c.openTPM()
	if err != nil {
		return nil, err
	}
	defer tpm.Close()

	status := &LockoutStatus{}

	lockoutCounter, err := getTPMProperty(tpm, tpm2.TPMPTLockoutCounter)
	if err == nil {
		status.LockoutCounter = uint64(lockoutCounter)
	}

	maxAuthFail, err := getTPMProperty(tpm, tpm2.TPMPTMaxAuthFail)
	if err == nil {
		status.MaxAuthFail = uint64(maxAuthFail)
	}

	lockoutRecovery, err := getTPMProperty(tpm, tpm2.TPMPTLockoutRecovery)
	if err == nil {
		status.LockoutRecovery = uint64(lockoutRecovery)
	}

	if status.MaxAuthFail > 0 && status.LockoutCounter >= status.MaxAuthFail {
		status.InLockout = true
	}

	return status, nil
}

// getTPMProperty reads a single TPM property.
func getTPMProperty(tpm transport.TPM, prop tpm2.TPMPT) (uint32, error) {
	getCapCmd := tpm2.GetCapability{
		Capability:    tpm2.TPMCapTPMProperties,
		Property:      uint32(prop),
		PropertyCount: 1,
	}
	rsp, err := getCapCmd.Execute(tpm)
	if err != nil {
		return 0, err
	}

	props, err := rsp.CapabilityData.Data.TPMProperties()
	if err != nil {
		return 0, err
	}
	if len(props.TPMProperty) == 0 {
		return 0, errors.New("no property returned")
	}
	return props.TPMProperty[0].Value, nil
}

// propertyString decodes a property value holding four ASCII bytes.
func propertyString(v uint32) string {
	b := []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	return strings.TrimRight(string(b), "\x00")
}

// internal/config/portinfo.go
package config

import (
	"fmt"
	"strconv"

	"github.com/BurntSushi/toml"

	"vx4-service/internal/protocol"
)

// PortInfo is the legacy per-installation port description. Each setting
// lives in its own section:
//
//	[PortName]
//	Port = "COM3"
//	[BaudRate]
//	BaudRate = 9600
//	[Parity]
//	Parity = 0
//	[DataBits]
//	DataBits = 8
//	[StopBits]
//	StopBits = 1
//
// Parity codes are 0=none 1=odd 2=even 3=mark 4=space; stop bit codes are
// 1=one 2=two 3=one and a half.
type PortInfo struct {
	PortName struct {
		Port string `toml:"Port"`
	} `toml:"PortName"`
	BaudRate struct {
		BaudRate int `toml:"BaudRate"`
	} `toml:"BaudRate"`
	Parity struct {
		Parity *int `toml:"Parity"`
	} `toml:"Parity"`
	DataBits struct {
		DataBits int `toml:"DataBits"`
	} `toml:"DataBits"`
	StopBits struct {
		StopBits int `toml:"StopBits"`
	} `toml:"StopBits"`
}

// LoadPortInfo decodes and checks a port-info file.
func LoadPortInfo(path string) (*PortInfo, error) {
	var info PortInfo
	meta, err := toml.DecodeFile(path, &info)
	if err != nil {
		return nil, fmt.Errorf("failed to read port info file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("port info file %s: unknown keys %v", path, undecoded)
	}

	if info.Parity.Parity != nil {
		if _, err := protocol.ParseParity(strconv.Itoa(*info.Parity.Parity)); err != nil {
			return nil, fmt.Errorf("port info file %s: %w", path, err)
		}
	}
	if info.StopBits.StopBits != 0 {
		if _, err := protocol.StopBitsFromCode(info.StopBits.StopBits); err != nil {
			return nil, fmt.Errorf("port info file %s: %w", path, err)
		}
	}
	return &info, nil
}

// Apply overlays the settings present in the file on s.
func (p *PortInfo) Apply(s *SerialConfig) {
	if p.PortName.Port != "" {
		s.Port = p.PortName.Port
	}
	if p.BaudRate.BaudRate != 0 {
		s.BaudRate = p.BaudRate.BaudRate
	}
	if p.Parity.Parity != nil {
		parity, _ := protocol.ParseParity(strconv.Itoa(*p.Parity.Parity))
		s.Parity = parity.String()
	}
	if p.DataBits.DataBits != 0 {
		s.DataBits = p.DataBits.DataBits
	}
	if p.StopBits.StopBits != 0 {
		sb, _ := protocol.StopBitsFromCode(p.StopBits.StopBits)
		s.StopBits = sb.String()
	}
}

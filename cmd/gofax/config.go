package main

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/klehmann/gofax/t30"
)

// stationConfig is the YAML-loadable subset of t30.Config an operator picks
// per call: identity strings and the modem/ECM capability set, loaded from
// a device-profile file rather than hardcoded.
type stationConfig struct {
	Ident       string   `yaml:"ident"`
	ECMAllowed  bool     `yaml:"ecm_allowed"`
	Modems      []string `yaml:"modems"`
	Compression []string `yaml:"compression"`
}

func loadStationConfig(path string) (stationConfig, error) {
	var cfg stationConfig
	var data, err = os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func defaultStationConfig() stationConfig {
	return stationConfig{
		Ident:       "GOFAX",
		ECMAllowed:  true,
		Modems:      []string{"v17", "v29", "v27ter"},
		Compression: []string{"mmr", "mr", "mh"},
	}
}

var modemMaskNames = map[string]t30.ModemMask{
	"v27ter": t30.ModemV27ter2400 | t30.ModemV27ter4800,
	"v29":    t30.ModemV29_7200 | t30.ModemV29_9600,
	"v17":    t30.ModemV17_7200 | t30.ModemV17_9600 | t30.ModemV17_12000 | t30.ModemV17_14400,
}

var compressionMaskNames = map[string]t30.CompressionMask{
	"mh":  t30.CompressionMH,
	"mr":  t30.CompressionMR,
	"mmr": t30.CompressionMMR,
}

func (c stationConfig) modemMask() t30.ModemMask {
	var mask t30.ModemMask
	for _, name := range c.Modems {
		mask |= modemMaskNames[name]
	}
	return mask
}

func (c stationConfig) compressionMask() t30.CompressionMask {
	var mask t30.CompressionMask
	for _, name := range c.Compression {
		mask |= compressionMaskNames[name]
	}
	return mask
}

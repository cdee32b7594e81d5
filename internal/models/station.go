package models

import (
	"net"
	"strconv"
)

// Station is a single reference station advertised by a caster.
type Station struct {
	ID     string  `json:"id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Caster string  `json:"caster"`
}

// StationList is the persisted output artifact.
type StationList struct {
	Stations  []Station `json:"stations"`
	Timestamp string    `json:"timestamp"`
}

// CasterConfig holds the connection parameters of one caster section.
type CasterConfig struct {
	Name      string
	Host      string
	Port      int
	Username  string
	Password  string
	CacheFile string
}

// Address returns host:port.
func (c CasterConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MissingFetchFields lists the connection keys that must be set before
// the caster can be contacted.
func (c CasterConfig) MissingFetchFields() []string {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "caster")
	}
	if c.Port <= 0 {
		missing = append(missing, "port")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	return missing
}

package config

import "github.com/sirupsen/logrus"

type Config interface {
	AcceptClients() bool
	AutoGrantReads() bool
	AutoGrantWrites() bool
	AllowNonRootAccess() bool
	RetentionDays() int
	SampleData() bool
	SampleDataSchedule() string

	SetAcceptClients(bool)
	SetAutoGrantReads(bool)
	SetAutoGrantWrites(bool)
	SetAllowNonRootAccess(bool)
	SetRetentionDays(int)
	SetSampleData(bool)
	SetSampleDataSchedule(string)

	// LogrusFields returns the configuration as log fields.
	LogrusFields() logrus.Fields

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}

package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kcal-sh/kcal/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		AcceptClients:      ptr.To(true),
		AutoGrantReads:     ptr.To(true),
		AutoGrantWrites:    ptr.To(true),
		AllowNonRootAccess: ptr.To(false),
		RetentionDays:      ptr.To(30),
		// A fresh install has no data source wired up, so the sampler is
		// on by default to give clients something to show. Deployments
		// with real sources should turn it off.
		SampleData:         ptr.To(true),
		SampleDataSchedule: ptr.To("@every 30m"),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = defaultFileConfig
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	AcceptClients      *bool   `json:"acceptClients,omitempty"`
	AutoGrantReads     *bool   `json:"autoGrantReads,omitempty"`
	AutoGrantWrites    *bool   `json:"autoGrantWrites,omitempty"`
	AllowNonRootAccess *bool   `json:"allowNonRootAccess,omitempty"`
	RetentionDays      *int    `json:"retentionDays,omitempty"`
	SampleData         *bool   `json:"sampleData,omitempty"`
	SampleDataSchedule *string `json:"sampleDataSchedule,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		AcceptClients:      ptr.To(c.AcceptClients()),
		AutoGrantReads:     ptr.To(c.AutoGrantReads()),
		AutoGrantWrites:    ptr.To(c.AutoGrantWrites()),
		AllowNonRootAccess: ptr.To(c.AllowNonRootAccess()),
		RetentionDays:      ptr.To(c.RetentionDays()),
		SampleData:         ptr.To(c.SampleData()),
		SampleDataSchedule: ptr.To(c.SampleDataSchedule()),
	}

	return rawConfig, nil
}

func (f *File) AcceptClients() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var acceptClients bool

	if f.c.AcceptClients != nil {
		acceptClients = *f.c.AcceptClients
	} else {
		acceptClients = *defaultFileConfig.AcceptClients
	}

	return acceptClients
}

func (f *File) AutoGrantReads() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var autoGrantReads bool

	if f.c.AutoGrantReads != nil {
		autoGrantReads = *f.c.AutoGrantReads
	} else {
		autoGrantReads = *defaultFileConfig.AutoGrantReads
	}

	return autoGrantReads
}

func (f *File) AutoGrantWrites() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var autoGrantWrites bool

	if f.c.AutoGrantWrites != nil {
		autoGrantWrites = *f.c.AutoGrantWrites
	} else {
		autoGrantWrites = *defaultFileConfig.AutoGrantWrites
	}

	return autoGrantWrites
}

func (f *File) AllowNonRootAccess() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var allowNonRootAccess bool

	if f.c.AllowNonRootAccess != nil {
		allowNonRootAccess = *f.c.AllowNonRootAccess
	} else {
		allowNonRootAccess = *defaultFileConfig.AllowNonRootAccess
	}

	return allowNonRootAccess
}

func (f *File) RetentionDays() int {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var retentionDays int

	if f.c.RetentionDays != nil {
		retentionDays = *f.c.RetentionDays
	} else {
		retentionDays = *defaultFileConfig.RetentionDays
	}

	return retentionDays
}

func (f *File) SampleData() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var sampleData bool

	if f.c.SampleData != nil {
		sampleData = *f.c.SampleData
	} else {
		sampleData = *defaultFileConfig.SampleData
	}

	return sampleData
}

func (f *File) SampleDataSchedule() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var schedule string

	if f.c.SampleDataSchedule != nil {
		schedule = *f.c.SampleDataSchedule
	} else {
		schedule = *defaultFileConfig.SampleDataSchedule
	}

	return schedule
}

func (f *File) SetAcceptClients(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.AcceptClients = &b
}

func (f *File) SetAutoGrantReads(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.AutoGrantReads = &b
}

func (f *File) SetAutoGrantWrites(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.AutoGrantWrites = &b
}

func (f *File) SetAllowNonRootAccess(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.AllowNonRootAccess = &b
}

func (f *File) SetRetentionDays(i int) {
	if f.c == nil {
		panic("config is nil")
	}

	if i <= 0 {
		panic("retention must be at least one day")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.RetentionDays = &i
}

func (f *File) SetSampleData(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.SampleData = &b
}

func (f *File) SetSampleDataSchedule(s string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.SampleDataSchedule = &s
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}
	configString := string(b)

	if strings.TrimSpace(configString) == "" {
		// If the file is empty, return the empty config.
		// Do not make f.c a nil.
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"acceptClients":      f.AcceptClients(),
		"autoGrantReads":     f.AutoGrantReads(),
		"autoGrantWrites":    f.AutoGrantWrites(),
		"allowNonRootAccess": f.AllowNonRootAccess(),
		"retentionDays":      f.RetentionDays(),
		"sampleData":         f.SampleData(),
		"sampleDataSchedule": f.SampleDataSchedule(),
	}
}

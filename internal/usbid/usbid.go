// Package usbid names USB vendors and interface classes for diagnostics.
//
// Names come from the usb.ids database shipped with most Linux systems. When
// no database is available, class lookups fall back to the standard class
// codes so interface listings stay readable.
package usbid

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// DefaultPaths lists the standard locations for the USB ID database.
var DefaultPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
}

// Standard class codes, used when the database has no entry.
var builtinClasses = map[uint8]string{
	0x00: "(Defined at Interface level)",
	0x01: "Audio",
	0x02: "Communications",
	0x03: "Human Interface Device",
	0x05: "Physical Interface Device",
	0x06: "Imaging",
	0x07: "Printer",
	0x08: "Mass Storage",
	0x09: "Hub",
	0x0A: "CDC Data",
	0x0B: "Chip/SmartCard",
	0x0D: "Content Security",
	0x0E: "Video",
	0x0F: "Personal Healthcare",
	0x10: "Audio/Video",
	0x11: "Billboard",
	0xDC: "Diagnostic",
	0xE0: "Wireless",
	0xEF: "Miscellaneous Device",
	0xFE: "Application Specific Interface",
	0xFF: "Vendor Specific Class",
}

// Database caches names parsed from a usb.ids file.
type Database struct {
	vendors    map[uint16]string // VID -> vendor name
	classes    map[uint8]string  // class -> name
	subclasses map[uint16]string // class<<8 | subclass -> name
	protocols  map[uint32]string // class<<16 | subclass<<8 | protocol -> name
	loaded     bool
	mu         sync.RWMutex
	paths      []string
}

// New creates a database that searches DefaultPaths.
func New() *Database {
	return NewWithPaths(DefaultPaths)
}

// NewWithPaths creates a database that searches paths in order.
func NewWithPaths(paths []string) *Database {
	return &Database{
		vendors:    make(map[uint16]string),
		classes:    make(map[uint8]string),
		subclasses: make(map[uint16]string),
		protocols:  make(map[uint32]string),
		paths:      paths,
	}
}

// Load parses the first database file found. Subsequent calls do nothing.
// Returns false if no file could be opened.
func (db *Database) Load() bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.loaded {
		return len(db.vendors) > 0 || len(db.classes) > 0
	}
	db.loaded = true

	for _, path := range db.paths {
		file, err := os.Open(path)
		if err != nil {
			continue
		}
		err = db.parse(file)
		file.Close()
		return err == nil
	}
	return false
}

// Parse reads database entries from r, adding to those already known.
func (db *Database) Parse(r io.Reader) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.loaded = true
	return db.parse(r)
}

type section int

const (
	sectionNone section = iota
	sectionVendor
	sectionClass
)

// parse handles the vendor list and the "C" class list; other sections
// (languages, HID usages, ...) are skipped.
func (db *Database) parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	var (
		sec      section
		class    uint8
		subclass uint8
		haveSub  bool
	)

	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		switch {
		case strings.HasPrefix(line, "\t\t"):
			if sec != sectionClass || !haveSub {
				continue
			}
			if id, name, ok := splitEntry(line[2:], 2); ok {
				key := uint32(class)<<16 | uint32(subclass)<<8 | uint32(id)
				db.protocols[key] = name
			}

		case line[0] == '\t':
			if sec != sectionClass {
				continue
			}
			if id, name, ok := splitEntry(line[1:], 2); ok {
				subclass, haveSub = uint8(id), true
				db.subclasses[uint16(class)<<8|uint16(subclass)] = name
			}

		case strings.HasPrefix(line, "C "):
			if id, name, ok := splitEntry(line[2:], 2); ok {
				sec, class, haveSub = sectionClass, uint8(id), false
				db.classes[class] = name
			} else {
				sec = sectionNone
			}

		default:
			if id, name, ok := splitEntry(line, 4); ok {
				sec = sectionVendor
				db.vendors[uint16(id)] = name
			} else {
				sec = sectionNone
			}
		}
	}
	return scanner.Err()
}

// splitEntry parses "<hex id>  <name>" where the id has exactly digits hex
// digits.
func splitEntry(s string, digits int) (uint64, string, bool) {
	if len(s) < digits+2 || s[digits] != ' ' {
		return 0, "", false
	}
	id, err := strconv.ParseUint(s[:digits], 16, digits*4)
	if err != nil {
		return 0, "", false
	}
	name := strings.TrimSpace(s[digits:])
	if name == "" {
		return 0, "", false
	}
	return id, name, true
}

// LookupVendor returns the vendor name for vid, or "".
func (db *Database) LookupVendor(vid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vendors[vid]
}

// ClassName returns the name of an interface class, falling back to the
// standard class table.
func (db *Database) ClassName(class uint8) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if name, ok := db.classes[class]; ok {
		return name
	}
	return builtinClasses[class]
}

// Describe returns the most specific name known for a
// class/subclass/protocol triple, joined with " / ".
func (db *Database) Describe(class, subclass, protocol uint8) string {
	name := db.ClassName(class)
	if name == "" {
		return ""
	}

	db.mu.RLock()
	defer db.mu.RUnlock()
	parts := []string{name}
	if sub, ok := db.subclasses[uint16(class)<<8|uint16(subclass)]; ok {
		parts = append(parts, sub)
		key := uint32(class)<<16 | uint32(subclass)<<8 | uint32(protocol)
		if proto, ok := db.protocols[key]; ok {
			parts = append(parts, proto)
		}
	}
	return strings.Join(parts, " / ")
}

// IsLoaded reports whether Load or Parse has run.
func (db *Database) IsLoaded() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.loaded
}

// VendorCount returns the number of vendors in the database.
func (db *Database) VendorCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.vendors)
}

// ClassCount returns the number of classes parsed from the database.
func (db *Database) ClassCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.classes)
}

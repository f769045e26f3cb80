package scan

// FindLatest returns the most recent record for name, or nil if none match.
// Names are compared exactly. scan_date strings are compared lexicographically,
// which is chronological for the fixed-width ISO-8601 form the scanner writes.
// On identical dates the record earliest in records wins. Records without
// a package name never match.
func FindLatest(name string, records []Record) *Record {
	if name == "" {
		return nil
	}
	var latest *Record
	for i := range records {
		rec := &records[i]
		if rec.PackageName != name {
			continue
		}
		if latest == nil || Newer(rec, latest) {
			latest = rec
		}
	}
	return latest
}

// Newer reports whether a was scanned strictly after b
func Newer(a, b *Record) bool {
	return a.ScanDate > b.ScanDate
}

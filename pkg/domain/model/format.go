package model

import "strings"

// ArchiveFormat is the container format derived from a file name suffix
type ArchiveFormat int

const (
	FormatUnsupported ArchiveFormat = iota
	FormatZip
	FormatTarPlain
	FormatTarGzip
)

func (f ArchiveFormat) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTarPlain:
		return "tar"
	case FormatTarGzip:
		return "tar.gz"
	default:
		return "unsupported"
	}
}

// classifyOrder is checked top to bottom; ".tar.gz" must precede ".tar"
var classifyOrder = []struct {
	suffix string
	format ArchiveFormat
}{
	{".zip", FormatZip},
	{".tar.gz", FormatTarGzip},
	{".tar", FormatTarPlain},
}

// Classify returns the archive format for fileName by exact, case-sensitive
// suffix match. The content of the file is never inspected.
func Classify(fileName string) ArchiveFormat {
	for _, c := range classifyOrder {
		if strings.HasSuffix(fileName, c.suffix) {
			return c.format
		}
	}
	return FormatUnsupported
}

package model

import "io/fs"

// MemberKind is the type of an archive entry
type MemberKind int

const (
	MemberRegular MemberKind = iota
	MemberDirectory
	MemberSymlink
	MemberHardlink
	MemberOther // devices, fifos and anything else that is never extracted
)

func (k MemberKind) String() string {
	switch k {
	case MemberRegular:
		return "file"
	case MemberDirectory:
		return "dir"
	case MemberSymlink:
		return "symlink"
	case MemberHardlink:
		return "hardlink"
	default:
		return "other"
	}
}

// ArchiveMember is one entry of an opened archive. It only lives for the
// duration of an extraction pass.
type ArchiveMember struct {
	RelativePath string
	IsDirectory  bool
	Kind         MemberKind
	LinkTarget   string // Set for symlink and hardlink members
	Size         int64  // Declared uncompressed size
	Mode         fs.FileMode
}

// MemberVerdict is the outcome of checking one member without extracting it
type MemberVerdict struct {
	Member ArchiveMember
	Target string // Resolved output path, empty if it could not be computed
	Safe   bool
	Reason string // Why the member was rejected
}

package ipc

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hansbonini/wiifs/pkg/common"
)

var (
	// ErrPathEscapesRoot is returned for paths that climb above the NAND root
	ErrPathEscapesRoot = errors.New("path escapes the NAND root")
	// ErrInvalidPath is returned for paths with characters the host cannot hold
	ErrInvalidPath = errors.New("invalid emulated path")
)

// PathTranslator maps emulated NAND paths onto a host sandbox directory
type PathTranslator struct {
	root string
}

// NewPathTranslator roots every translated path at root
func NewPathTranslator(root string) (*PathTranslator, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve NAND root %s: %w", root, err)
	}
	return &PathTranslator{root: filepath.Clean(absRoot)}, nil
}

// Root returns the host directory backing the emulated "/"
func (p *PathTranslator) Root() string {
	return p.root
}

// Translate decodes up to maxLen bytes of a NUL-terminated guest path and
// returns the matching host path. The path need not exist.
func (p *PathTranslator) Translate(raw []byte, maxLen int) (string, error) {
	if maxLen >= 0 && len(raw) > maxLen {
		raw = raw[:maxLen]
	}
	return p.HostPath(common.CString(raw))
}

// HostPath maps an already decoded emulated path. A trailing "/" is kept.
// The empty path names the root.
func (p *PathTranslator) HostPath(emulated string) (string, error) {
	if strings.ContainsRune(emulated, '\\') {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, emulated)
	}
	if emulated != "" && emulated[0] != '/' {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, emulated)
	}

	var components []string
	for _, c := range strings.Split(emulated, "/") {
		switch c {
		case "", ".":
		case "..":
			if len(components) == 0 {
				return "", fmt.Errorf("%w: %q", ErrPathEscapesRoot, emulated)
			}
			components = components[:len(components)-1]
		default:
			components = append(components, c)
		}
	}

	host := filepath.Join(append([]string{p.root}, components...)...)
	if !p.Contains(host) {
		return "", fmt.Errorf("%w: %q", ErrPathEscapesRoot, emulated)
	}
	if len(components) > 0 && strings.HasSuffix(emulated, "/") {
		host += string(filepath.Separator)
	}
	common.LogDebug(common.DebugTranslate, emulated, host)
	return host, nil
}

// Contains reports whether host lies inside the sandbox root. The check is
// lexical; symlinks placed inside the root by the host are followed.
func (p *PathTranslator) Contains(host string) bool {
	rel, err := filepath.Rel(p.root, host)
	if err != nil {
		return false
	}
	return filepath.IsLocal(rel)
}

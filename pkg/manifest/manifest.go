// Package manifest turns package.json files and command-line arguments into
// root requests for a dependency tree build.
package manifest

import (
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/matzehuels/deptree/pkg/deptree"
	"github.com/matzehuels/deptree/pkg/errors"
	"github.com/matzehuels/deptree/pkg/registry"
)

// Manifest is the subset of package.json needed to seed a build.
type Manifest struct {
	Name     string
	Version  string
	Requests []deptree.Request
}

// Supports reports whether filename looks like an npm manifest.
func Supports(filename string) bool {
	base := filename
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	return strings.EqualFold(base, "package.json")
}

// ReadFile parses the package.json at path.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "read %s", path)
	}
	return Parse(data)
}

// Parse reads dependencies, devDependencies and peerDependencies, in that
// order and each in file order. Versions are kept exactly as written.
func Parse(data []byte) (*Manifest, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "package.json is not valid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "package.json must be an object")
	}

	m := &Manifest{
		Name:     doc.Get("name").String(),
		Version:  doc.Get("version").String(),
		Requests: []deptree.Request{},
	}
	m.Requests = appendDeps(m.Requests, doc.Get("dependencies"), false, false)
	m.Requests = appendDeps(m.Requests, doc.Get("devDependencies"), true, false)
	m.Requests = appendDeps(m.Requests, doc.Get("peerDependencies"), false, true)
	return m, nil
}

func appendDeps(reqs []deptree.Request, obj gjson.Result, isDev, isPeer bool) []deptree.Request {
	if !obj.IsObject() {
		return reqs
	}
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.Str != "" && v.Type == gjson.String {
			reqs = append(reqs, deptree.Request{Name: k.Str, Version: v.Str, IsDev: isDev, IsPeer: isPeer})
		}
		return true
	})
	return reqs
}

// ParseSpec parses a "name@version" argument. Scoped names keep their
// leading "@"; a bare name requests the latest version.
func ParseSpec(arg string) (deptree.Request, error) {
	arg = strings.TrimSpace(arg)
	if len(arg) > 1 && strings.HasSuffix(arg, "@") {
		return deptree.Request{}, errors.New(errors.ErrCodeInvalidPackage, "missing version in %q", arg)
	}
	name, version := registry.SplitKey(arg)
	if version == "" {
		version = registry.Latest
	}
	if err := errors.ValidateNpmPackageName(name); err != nil {
		return deptree.Request{}, err
	}
	if err := errors.ValidateVersionSpec(version); err != nil {
		return deptree.Request{}, err
	}
	return deptree.Request{Name: name, Version: version}, nil
}

// ParseSpecs parses every argument, stopping at the first invalid one.
func ParseSpecs(args []string, isDev, isPeer bool) ([]deptree.Request, error) {
	reqs := make([]deptree.Request, 0, len(args))
	for _, arg := range args {
		r, err := ParseSpec(arg)
		if err != nil {
			return nil, err
		}
		r.IsDev, r.IsPeer = isDev, isPeer
		reqs = append(reqs, r)
	}
	return reqs, nil
}

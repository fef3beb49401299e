// Package resources provides the named script resources that scriptlet
// injection rules and redirect rules refer to.
package resources

import (
	"bufio"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/spf13/afero"
)

// jsSuffix is the suffix of scriptlet names which rules may leave out.
const jsSuffix = ".js"

// Resource is a named resource.
type Resource struct {
	Name    string
	MIME    string
	Content string
}

// Store is a set of resources.  It's safe for concurrent use once loaded.
type Store struct {
	resources map[string]*Resource
}

// New returns an empty store.
func New() (s *Store) {
	return &Store{resources: map[string]*Resource{}}
}

// Load reads resources from p on fsys.  p is either a directory, every file
// of which is a resource named after the file, or a file in the
// resources.txt format.  An empty p gives an empty store.
func Load(fsys afero.Fs, p string) (s *Store, err error) {
	defer func() { err = errors.Annotate(err, "loading resources from %q: %w", p) }()

	s = New()
	if p == "" {
		return s, nil
	}

	fi, err := fsys.Stat(p)
	if err != nil {
		return nil, err
	}

	if fi.IsDir() {
		err = s.loadDir(fsys, p)
	} else {
		err = s.loadFile(fsys, p)
	}
	if err != nil {
		return nil, err
	}

	return s, nil
}

// loadDir adds every regular file of dir.
func (s *Store) loadDir(fsys afero.Fs, dir string) (err error) {
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("reading dir: %w", err)
	}

	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}

		name := fi.Name()
		content, rerr := afero.ReadFile(fsys, path.Join(dir, name))
		if rerr != nil {
			return fmt.Errorf("reading %q: %w", name, rerr)
		}

		s.Add(&Resource{
			Name:    name,
			MIME:    mime.TypeByExtension(path.Ext(name)),
			Content: string(content),
		})
	}

	return nil
}

// loadFile adds the resources of a resources.txt file.
func (s *Store) loadFile(fsys afero.Fs, p string) (err error) {
	f, err := fsys.Open(p)
	if err != nil {
		return err
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	return s.Parse(f)
}

// Parse adds the resources read from r in the resources.txt format: blocks
// separated by empty lines, each starting with a "name mime-type" line
// followed by the content.  Lines starting with # between blocks are
// comments.
func (s *Store) Parse(r io.Reader) (err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var cur *Resource
	var content []string
	flush := func() {
		if cur != nil {
			cur.Content = strings.Join(content, "\n")
			s.Add(cur)
		}
		cur, content = nil, nil
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case cur != nil && strings.TrimSpace(line) == "":
			flush()
		case cur != nil:
			content = append(content, line)
		case strings.TrimSpace(line) == "", strings.HasPrefix(line, "#"):
			// Between blocks.
		default:
			fields := strings.Fields(line)
			cur = &Resource{Name: fields[0]}
			if len(fields) > 1 {
				cur.MIME = fields[1]
			}
		}
	}
	flush()

	return scanner.Err()
}

// Add adds res, replacing any resource with the same name.
func (s *Store) Add(res *Resource) {
	s.resources[res.Name] = res
}

// Lookup returns the resource called name.  Names resolve with and without
// the .js suffix.
func (s *Store) Lookup(name string) (res *Resource, ok bool) {
	if res, ok = s.resources[name]; ok {
		return res, true
	}

	if trimmed, cut := strings.CutSuffix(name, jsSuffix); cut {
		res, ok = s.resources[trimmed]
	} else {
		res, ok = s.resources[name+jsSuffix]
	}

	return res, ok
}

// Get returns the content of the resource called name, or an empty string if
// there is no such resource.
func (s *Store) Get(name string) (content string) {
	if res, ok := s.Lookup(name); ok {
		return res.Content
	}

	return ""
}

// Len returns the number of resources.
func (s *Store) Len() (n int) {
	return len(s.resources)
}

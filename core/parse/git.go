package parse

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/huangsam/insight/core/graph"
	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/schema"
)

const maxGitLine = 16 * 1024 * 1024

// GitParser reads the output of the git log command issued by contract.LocalGitClient.
type GitParser struct {
	opts Options
}

// NewGitParser creates a GitParser.
func NewGitParser(opts Options) *GitParser {
	return &GitParser{opts: opts}
}

// gitReader walks the export line by line and remembers where it is for error reporting.
type gitReader struct {
	scanner *bufio.Scanner
	line    int
	record  int
	csID    string
}

func (r *gitReader) next() (string, bool) {
	if !r.scanner.Scan() {
		return "", false
	}
	r.line++
	return strings.TrimSuffix(r.scanner.Text(), "\r"), true
}

func (r *gitReader) fail(msg string) *FormatError {
	return &FormatError{Record: r.record, ChangeSetID: r.csID, Line: r.line, Msg: msg}
}

// Parse implements the Parser interface.
func (p *GitParser) Parse(in io.Reader) (*schema.ParseResult, error) {
	b := newBuilder(p.opts)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxGitLine)
	r := &gitReader{scanner: scanner}

	var current *schema.ChangeSet
	flush := func() {
		if current != nil {
			b.add(current)
			current = nil
		}
	}

	for {
		line, ok := r.next()
		if !ok {
			break
		}
		if line == contract.GitHeaderStart {
			flush()
			r.record++
			cs, parents, err := p.readHeader(r)
			if err != nil {
				return nil, err
			}
			if _, dup := b.seen[cs.ID]; !dup {
				for _, parent := range parents {
					b.graph.RecordEdge(cs.ID, parent)
				}
			}
			current = cs
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if current == nil {
			return nil, r.fail("file status line before any commit header")
		}
		item, err := p.readItem(line, b, current.ID)
		if err != nil {
			return nil, r.fail(err.Error())
		}
		current.Items = append(current.Items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, r.fail(err.Error())
	}
	flush()
	return b.finish(), nil
}

// readHeader reads the fields following START_HEADER up to END_HEADER.
func (p *GitParser) readHeader(r *gitReader) (*schema.ChangeSet, []string, error) {
	r.csID = ""
	field := func(name string) (string, error) {
		v, ok := r.next()
		if !ok {
			return "", r.fail("unexpected end of export while reading " + name)
		}
		if v == contract.GitHeaderEnd || v == contract.GitHeaderStart {
			return "", r.fail("header ended before " + name)
		}
		return v, nil
	}

	hash, err := field("commit hash")
	if err != nil {
		return nil, nil, err
	}
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, nil, r.fail("empty commit hash")
	}
	r.csID = hash

	author, err := field("author")
	if err != nil {
		return nil, nil, err
	}
	rawDate, err := field("date")
	if err != nil {
		return nil, nil, err
	}
	date, err := time.Parse(time.RFC3339, strings.TrimSpace(rawDate))
	if err != nil {
		return nil, nil, r.fail("bad commit date: " + err.Error())
	}

	// The parent line may be empty, so it is read without field's marker checks.
	rawParents, ok := r.next()
	if !ok {
		return nil, nil, r.fail("unexpected end of export while reading parents")
	}
	if rawParents == contract.GitHeaderEnd {
		return nil, nil, r.fail("header ended before parents")
	}
	parents := strings.Fields(rawParents)
	if len(parents) == 0 {
		parents = []string{graph.NoParent}
	}

	var comment []string
	for {
		line, ok := r.next()
		if !ok {
			return nil, nil, r.fail("unexpected end of export inside commit message")
		}
		if line == contract.GitHeaderEnd {
			break
		}
		comment = append(comment, line)
	}

	cs := &schema.ChangeSet{
		ID:        hash,
		Committer: author,
		Date:      date,
		Comment:   strings.TrimSpace(strings.Join(comment, "\n")),
	}
	return cs, parents, nil
}

// readItem parses one --name-status line, e.g. "M\tpath" or "R087\told\tnew".
func (p *GitParser) readItem(line string, b *builder, csID string) (*schema.ChangeItem, error) {
	parts := strings.Split(line, "\t")
	code := parts[0]
	if code == "" {
		return nil, fmt.Errorf("missing change code in %q", line)
	}

	item := &schema.ChangeItem{}
	switch {
	case len(code) == 1 && strings.ContainsRune("AMTD", rune(code[0])):
		if len(parts) != 2 {
			return nil, fmt.Errorf("change %s expects one path, got %d fields", code, len(parts)-1)
		}
		item.Kind = gitKinds[code[0]]
		item.ServerPath = b.decodePath(parts[1], csID)
	case (code[0] == 'R' || code[0] == 'C') && isScore(code[1:]):
		if len(parts) != 3 {
			return nil, fmt.Errorf("change %s expects two paths, got %d fields", code, len(parts)-1)
		}
		item.Kind = schema.Rename
		if code[0] == 'C' {
			item.Kind = schema.Copy
		}
		item.FromServerPath = b.decodePath(parts[1], csID)
		item.ServerPath = b.decodePath(parts[2], csID)
	default:
		return nil, fmt.Errorf("unknown change code %q", code)
	}
	item.ChangeSetID = csID
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

var gitKinds = map[byte]schema.KindOfChange{
	'A': schema.Add,
	'M': schema.Edit,
	'T': schema.Edit,
	'D': schema.Delete,
}

// isScore reports whether s is the similarity score after R or C. Git always prints one.
func isScore(s string) bool {
	if s == "" || len(s) > 3 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

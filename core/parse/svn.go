package parse

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/huangsam/insight/core/graph"
	"github.com/huangsam/insight/schema"
)

// SVNParser reads the output of "svn log --xml --verbose".
type SVNParser struct {
	opts Options
}

// NewSVNParser creates an SVNParser.
func NewSVNParser(opts Options) *SVNParser {
	return &SVNParser{opts: opts}
}

type svnLogEntry struct {
	Revision string    `xml:"revision,attr"`
	Author   string    `xml:"author"`
	Date     string    `xml:"date"`
	Paths    []svnPath `xml:"paths>path"`
	Msg      string    `xml:"msg"`
}

type svnPath struct {
	Action       string `xml:"action,attr"`
	Kind         string `xml:"kind,attr"`
	CopyFromPath string `xml:"copyfrom-path,attr"`
	CopyFromRev  string `xml:"copyfrom-rev,attr"`
	Path         string `xml:",chardata"`
}

// Parse implements the Parser interface. Log entries are decoded one at a time.
func (p *SVNParser) Parse(in io.Reader) (*schema.ParseResult, error) {
	b := newBuilder(p.opts)
	dec := xml.NewDecoder(in)

	record := 0
	previous := ""
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line, _ := dec.InputPos()
			return nil, &FormatError{Record: record, Line: line, Msg: err.Error()}
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "logentry" {
			continue
		}

		record++
		line, _ := dec.InputPos()
		var entry svnLogEntry
		if err := dec.DecodeElement(&entry, &start); err != nil {
			return nil, &FormatError{Record: record, Line: line, Msg: err.Error()}
		}
		cs, err := p.toChangeSet(&entry)
		if err != nil {
			return nil, &FormatError{Record: record, ChangeSetID: entry.Revision, Line: line, Msg: err.Error()}
		}
		if !b.add(cs) {
			continue
		}
		// Revisions are linear: every entry's parent is the one logged after it.
		if previous != "" {
			b.graph.RecordEdge(previous, cs.ID)
		}
		previous = cs.ID
	}
	if previous != "" {
		b.graph.RecordEdge(previous, graph.NoParent)
	}
	return b.finish(), nil
}

// toChangeSet converts one log entry. A copy whose source is deleted in the
// same revision is how svn records a move, so the pair becomes one rename.
func (p *SVNParser) toChangeSet(entry *svnLogEntry) (*schema.ChangeSet, error) {
	revision := strings.TrimSpace(entry.Revision)
	if revision == "" {
		return nil, errors.New("log entry without revision")
	}
	rawDate := strings.TrimSpace(entry.Date)
	if rawDate == "" {
		return nil, errors.New("log entry without date")
	}
	date, err := time.Parse(time.RFC3339, rawDate)
	if err != nil {
		return nil, fmt.Errorf("bad date: %w", err)
	}

	cs := &schema.ChangeSet{
		ID:        revision,
		Committer: strings.TrimSpace(entry.Author),
		Date:      date,
		Comment:   strings.TrimSpace(entry.Msg),
	}

	deleted := make(map[string]bool)
	for _, sp := range entry.Paths {
		if sp.Kind != "dir" && sp.Action == "D" {
			deleted[strings.TrimSpace(sp.Path)] = true
		}
	}

	moved := make(map[string]bool)
	for _, sp := range entry.Paths {
		if sp.Kind == "dir" {
			continue
		}
		path := strings.TrimSpace(sp.Path)
		item := &schema.ChangeItem{ChangeSetID: revision, ServerPath: path}
		switch sp.Action {
		case "M":
			item.Kind = schema.Edit
		case "D":
			item.Kind = schema.Delete
		case "A", "R":
			from := strings.TrimSpace(sp.CopyFromPath)
			switch {
			case from == "":
				item.Kind = schema.Add
			case deleted[from]:
				item.Kind = schema.Rename
				item.FromServerPath = from
				moved[from] = true
			default:
				item.Kind = schema.Copy
				item.FromServerPath = from
			}
		default:
			return nil, fmt.Errorf("unknown action %q on %s", sp.Action, path)
		}
		cs.Items = append(cs.Items, item)
	}

	if len(moved) > 0 {
		cs.RemoveItems(func(item *schema.ChangeItem) bool {
			return item.Kind == schema.Delete && moved[item.ServerPath]
		})
	}
	for _, item := range cs.Items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}
	return cs, nil
}

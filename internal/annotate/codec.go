package annotate

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/example/defectmark/internal/colorutil"
	"github.com/example/defectmark/internal/geom"
)

// historyVersion is bumped whenever the sidecar layout changes.
const historyVersion = 1

type historyDoc struct {
	Version int        `yaml:"version"`
	Width   int        `yaml:"width,omitempty"`
	Height  int        `yaml:"height,omitempty"`
	Ops     []opRecord `yaml:"ops"`
}

type opRecord struct {
	ID       string       `yaml:"id"`
	Kind     string       `yaml:"kind"`
	Color    string       `yaml:"color"`
	Width    float64      `yaml:"width"`
	Points   [][2]float64 `yaml:"points,omitempty,flow"`
	From     *[2]float64  `yaml:"from,omitempty,flow"`
	To       *[2]float64  `yaml:"to,omitempty,flow"`
	Box      *[4]float64  `yaml:"box,omitempty,flow"`
	Text     string       `yaml:"text,omitempty"`
	At       *[2]float64  `yaml:"at,omitempty,flow"`
	FontSize float64      `yaml:"font_size,omitempty"`
}

// Sidecar is the re-edit record saved next to a flattened image: the size of
// the source raster the ops were drawn against and the ops themselves.
type Sidecar struct {
	Width, Height int
	History       History
}

// EncodeHistory writes s as YAML.
func EncodeHistory(w io.Writer, s Sidecar) error {
	doc := historyDoc{Version: historyVersion, Width: s.Width, Height: s.Height}
	for _, op := range s.History.ops {
		rec, err := encodeOp(op)
		if err != nil {
			return err
		}
		doc.Ops = append(doc.Ops, rec)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	return enc.Close()
}

// DecodeHistory reads a sidecar written by EncodeHistory.
func DecodeHistory(r io.Reader) (Sidecar, error) {
	var doc historyDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return Sidecar{}, fmt.Errorf("decode history: %w", err)
	}
	if doc.Version != historyVersion {
		return Sidecar{}, fmt.Errorf("unsupported history version %d", doc.Version)
	}
	ops := make([]Op, 0, len(doc.Ops))
	for i, rec := range doc.Ops {
		op, err := decodeOp(rec)
		if err != nil {
			return Sidecar{}, fmt.Errorf("op %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	return Sidecar{Width: doc.Width, Height: doc.Height, History: History{ops: ops}}, nil
}

func pair(p geom.Point) *[2]float64 { return &[2]float64{p.X, p.Y} }

func encodeOp(op Op) (opRecord, error) {
	b := op.Style()
	rec := opRecord{ID: b.ID, Kind: op.Kind().String(), Color: colorutil.Hex(b.Color), Width: b.BaseWidth}
	switch o := op.(type) {
	case Stroke:
		rec.Points = make([][2]float64, len(o.Points))
		for i, p := range o.Points {
			rec.Points[i] = [2]float64{p.X, p.Y}
		}
	case Arrow:
		rec.From, rec.To = pair(o.From), pair(o.To)
	case Rect:
		rec.Box = &[4]float64{o.X, o.Y, o.W, o.H}
	case Ellipse:
		rec.Box = &[4]float64{o.X, o.Y, o.W, o.H}
	case Text:
		rec.Text = o.Text
		rec.At = pair(o.Position())
		rec.FontSize = o.FontSize
	default:
		return opRecord{}, fmt.Errorf("unknown op %T", op)
	}
	return rec, nil
}

func decodeOp(rec opRecord) (Op, error) {
	kind, err := ParseKind(rec.Kind)
	if err != nil {
		return nil, err
	}
	c, err := colorutil.Parse(rec.Color)
	if err != nil {
		return nil, err
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("%s op has no id", kind)
	}
	base := Base{ID: rec.ID, Color: c, BaseWidth: rec.Width}
	switch kind {
	case KindStroke:
		if len(rec.Points) == 0 {
			return nil, fmt.Errorf("stroke %s has no points", rec.ID)
		}
		pts := make([]geom.Point, len(rec.Points))
		for i, p := range rec.Points {
			pts[i] = geom.Pt(p[0], p[1])
		}
		return Stroke{Base: base, Points: pts}, nil
	case KindArrow:
		if rec.From == nil || rec.To == nil {
			return nil, fmt.Errorf("arrow %s needs from and to", rec.ID)
		}
		return Arrow{Base: base, From: geom.Pt(rec.From[0], rec.From[1]), To: geom.Pt(rec.To[0], rec.To[1])}, nil
	case KindRect, KindEllipse:
		if rec.Box == nil {
			return nil, fmt.Errorf("%s %s needs a box", kind, rec.ID)
		}
		x, y, w, h := rec.Box[0], rec.Box[1], rec.Box[2], rec.Box[3]
		if kind == KindRect {
			return Rect{Base: base, X: x, Y: y, W: w, H: h}, nil
		}
		return Ellipse{Base: base, X: x, Y: y, W: w, H: h}, nil
	case KindText:
		if rec.At == nil || rec.Text == "" {
			return nil, fmt.Errorf("text %s needs text and a position", rec.ID)
		}
		return Text{Base: base, Text: rec.Text, X: rec.At[0], Y: rec.At[1], FontSize: rec.FontSize}, nil
	}
	return nil, fmt.Errorf("unhandled kind %s", kind)
}

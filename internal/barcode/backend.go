package barcode

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"slices"

	"github.com/MeKo-Tech/barscan/internal/detector"
	"github.com/MeKo-Tech/barscan/internal/utils"
)

// rotations are the angles tried when Options.TryRotations is set.
var rotations = []int{0, 90, 180, 270}

// newDefaultBackend returns the row-scanning EAN-13 decoder.
func newDefaultBackend() (Backend, error) { return &rowScanner{}, nil }

type rowScanner struct{}

func (b *rowScanner) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	if !wants(opts.Formats, FormatEAN13) && !wants(opts.Formats, FormatUPCA) {
		return nil, nil
	}

	// Apply ROI if requested and valid
	base, origin := img, img.Bounds().Min
	if !opts.ROI.Empty() {
		if roi := opts.ROI.Intersect(img.Bounds()); !roi.Empty() {
			base, origin = utils.CropImageRect(img, roi), roi.Min
		}
	}
	w, h := base.Bounds().Dx(), base.Bounds().Dy()

	angles := rotations[:1]
	if opts.TryRotations {
		angles = rotations
	}

	var out []Result
	for _, angle := range angles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		src := utils.NewChannelSource(utils.RotateBy(base, angle))
		report := detector.Scan(src, src.Width(), src.Height(), detector.Config{
			Channel:     opts.Channel,
			RowStride:   opts.RowStride,
			Workers:     opts.Workers,
			Orientation: angle,
		})

		for _, rec := range report.Records {
			code, ok := Translate(rec)
			if !ok {
				slog.Debug("Discarding record that failed translation",
					"row", rec.Meta.Y, "left", rec.Meta.Left, "right", rec.Meta.Right, "angle", angle)
				continue
			}
			res, keep := newResult(code, rec, report.Stride, opts.Formats)
			if !keep {
				continue
			}
			res.Rotation = float64(angle)
			res.BBox = utils.UnrotateRect(res.BBox, angle, w, h).Add(origin)
			res.Points = corners(res.BBox)
			if !duplicate(out, res) {
				out = append(out, res)
			}
		}

		if len(out) > 0 && !opts.Multi {
			break
		}
	}

	return out, nil
}

// newResult builds a result in the scanned (rotated, cropped) frame.
func newResult(code Code, rec detector.Record, stride int, formats []Format) (Result, bool) {
	res := Result{Code: code, Confidence: -1}
	switch {
	case code.IsUPCA() && wants(formats, FormatUPCA) && !explicit(formats, FormatEAN13):
		res.Type, res.Value = FormatUPCA, code.UPCA()
	case wants(formats, FormatEAN13):
		res.Type, res.Value = FormatEAN13, code.String()
	default:
		return Result{}, false
	}

	rows := slices.Clone(rec.Meta.Rows)
	if len(rows) == 0 {
		rows = []int{rec.Meta.Y}
	}
	slices.Sort(rows)
	rows = slices.Compact(rows)
	top, bottom := rows[0], rows[len(rows)-1]

	res.Rows = rows
	res.BBox = image.Rect(rec.Meta.Left, top, rec.Meta.Right, bottom+1)
	if stride > 0 {
		res.Confidence = float64(len(rows)) / float64((bottom-top)/stride+1)
	}
	return res, true
}

func corners(r image.Rectangle) []Point {
	return []Point{
		{X: r.Min.X, Y: r.Min.Y},
		{X: r.Max.X - 1, Y: r.Min.Y},
		{X: r.Max.X - 1, Y: r.Max.Y - 1},
		{X: r.Min.X, Y: r.Max.Y - 1},
	}
}

func duplicate(out []Result, res Result) bool {
	for _, o := range out {
		if o.Value == res.Value && o.BBox.Overlaps(res.BBox) {
			return true
		}
	}
	return false
}

// wants reports whether f is requested; an empty list requests everything.
func wants(formats []Format, f Format) bool {
	return len(formats) == 0 || slices.Contains(formats, f)
}

func explicit(formats []Format, f Format) bool {
	return slices.Contains(formats, f)
}

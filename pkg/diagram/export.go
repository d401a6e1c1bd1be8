package diagram

import (
	"fmt"
	"html"
	"io"
	"math"
	"strconv"

	svg "github.com/ajstarks/svgo"

	"github.com/metaxime/pathview/pkg/pathway"
	"github.com/metaxime/pathview/pkg/viewport"
)

const diagramCSS = `
    .edge { fill: none; stroke: #000000; stroke-width: 1.5; }
    .node rect { fill: #ffffff; stroke: #000000; stroke-width: 1.2; }
    .node text, .label { font-family: Arial, sans-serif; font-size: 11px; fill: #000000; }
    .label { pointer-events: none; }
    svg.pathview { cursor: grab; }
    svg.pathview.dragging { cursor: grabbing; }`

// panZoomJS mirrors viewport.Zoom: wheel zoom about the pointer clamped to
// [data-min-scale, data-max-scale], drag to pan, double click to re-fit.
const panZoomJS = `
    (function () {
      var root = document.currentScript ? document.currentScript.ownerSVGElement : null;
      root = root || document.querySelector('svg.pathview');
      var vp = root.getElementById ? root.getElementById('viewport') : document.getElementById('viewport');
      var min = parseFloat(root.dataset.minScale), max = parseFloat(root.dataset.maxScale);
      var ms = parseFloat(root.dataset.transitionMs);
      var fit = { k: parseFloat(root.dataset.fitScale), x: parseFloat(root.dataset.fitX), y: parseFloat(root.dataset.fitY) };
      var t = { k: fit.k, x: fit.x, y: fit.y };
      function apply() { vp.setAttribute('transform', 'translate(' + t.x + ',' + t.y + ') scale(' + t.k + ')'); }
      function point(ev) {
        var r = root.getBoundingClientRect(), vb = root.viewBox.baseVal;
        return { x: (ev.clientX - r.left) * vb.width / r.width, y: (ev.clientY - r.top) * vb.height / r.height };
      }
      root.addEventListener('wheel', function (ev) {
        ev.preventDefault();
        var p = point(ev), k = Math.min(max, Math.max(min, t.k * Math.pow(2, -ev.deltaY * 0.002)));
        t.x = p.x - (p.x - t.x) * k / t.k;
        t.y = p.y - (p.y - t.y) * k / t.k;
        t.k = k;
        apply();
      }, { passive: false });
      var drag = null;
      root.addEventListener('pointerdown', function (ev) { drag = point(ev); root.classList.add('dragging'); });
      root.addEventListener('pointermove', function (ev) {
        if (!drag) return;
        var p = point(ev);
        t.x += p.x - drag.x; t.y += p.y - drag.y; drag = p;
        apply();
      });
      window.addEventListener('pointerup', function () { drag = null; root.classList.remove('dragging'); });
      root.addEventListener('dblclick', function () {
        var from = { k: t.k, x: t.x, y: t.y }, start = null;
        function ease(p) { return p < 0.5 ? 4 * p * p * p : 1 - Math.pow(-2 * p + 2, 3) / 2; }
        function step(ts) {
          if (start === null) start = ts;
          var p = ms > 0 ? Math.min(1, (ts - start) / ms) : 1, e = ease(p);
          t.k = from.k + (fit.k - from.k) * e; t.x = from.x + (fit.x - from.x) * e; t.y = from.y + (fit.y - from.y) * e;
          apply();
          if (p < 1) window.requestAnimationFrame(step);
        }
        window.requestAnimationFrame(step);
      });
    })();`

// ExportOptions tune [Diagram.WriteSVG].
type ExportOptions struct {
	// Transform applied to the viewport group; zero uses the fit.
	Transform viewport.Transform
	// Transition duration announced to the embedded script; zero uses the
	// default.
	TransitionMs int
	// Interactive embeds the pan/zoom script.
	Interactive bool
}

// WriteSVG writes the diagram as a standalone SVG document sized to the
// view, with the XML namespaces declared so the file opens outside a
// browser page.
func (d *Diagram) WriteSVG(w io.Writer, opts ExportOptions) error {
	t := opts.Transform
	if t.Scale == 0 {
		t = d.Fit
	}
	ms := opts.TransitionMs
	if ms <= 0 {
		ms = int(viewport.DefaultTransitionDuration.Milliseconds())
	}

	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	vw, vh := int(math.Ceil(d.View.Width)), int(math.Ceil(d.View.Height))
	canvas.Start(vw, vh,
		fmt.Sprintf(`viewBox="0 0 %d %d"`, vw, vh),
		`class="pathview"`,
		attr("data-result", d.ID),
		attr("data-min-scale", exact(d.Fit.Scale)),
		attr("data-max-scale", exact(d.maxScale)),
		attr("data-fit-scale", exact(d.Fit.Scale)),
		attr("data-fit-x", exact(d.Fit.TranslateX)),
		attr("data-fit-y", exact(d.Fit.TranslateY)),
		attr("data-transition-ms", strconv.Itoa(ms)),
	)
	canvas.Title(Filename(d.ID))

	canvas.Def()
	canvas.Marker("arrowhead", 9, 5, 10, 10, `orient="auto"`, `markerUnits="strokeWidth"`, `viewBox="0 0 10 10"`)
	canvas.Path("M0,0L10,5L0,10z", "fill:#000000")
	canvas.MarkerEnd()
	canvas.Style("text/css", diagramCSS)
	canvas.DefEnd()

	canvas.Group(`id="viewport"`, attr("transform", t.String()))

	canvas.Gid("edges")
	for _, e := range d.Edges {
		canvas.Path(e.PathData(), `class="edge"`, attr("data-source", e.Source), attr("data-target", e.Target),
			attr("data-role", string(e.Role)), `marker-end="url(#arrowhead)"`)
	}
	canvas.Gend()

	canvas.Gid("nodes")
	for _, n := range d.Nodes {
		d.writeNode(canvas, n)
	}
	canvas.Gend()

	canvas.Gid("labels")
	for _, l := range d.Labels {
		canvas.Text(round(l.X), round(l.Y), l.Text, `class="label"`, `text-anchor="middle"`, attr("data-node", l.NodeID))
	}
	canvas.Gend()

	canvas.Gend()

	if opts.Interactive {
		canvas.Script("application/ecmascript", panZoomJS)
	}
	canvas.End()
	return ew.err
}

func (d *Diagram) writeNode(canvas *svg.SVG, n NodeShape) {
	kind := "transformation"
	if n.Kind == pathway.KindCompound {
		kind = "compound"
	}
	b := n.Box
	left, top := round(b.Left()), round(b.Top())
	rx := round(b.CornerRadius)

	canvas.Group(attr("class", "node "+kind), attr("data-id", n.ID))
	canvas.Roundrect(left, top, round(b.Width), round(b.Height), rx, rx)
	switch n.Kind {
	case pathway.KindCompound:
		if m, ok := d.Mounts.Get(n.ID); ok && m.Depiction != nil {
			m.Depiction.WriteSVG(canvas, left, top)
		}
	default:
		canvas.Text(round(b.X), round(b.Y), n.Label, `text-anchor="middle"`, `dominant-baseline="central"`)
	}
	canvas.Gend()
}

func attr(name, value string) string {
	return name + `="` + html.EscapeString(value) + `"`
}

func exact(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func round(v float64) int { return int(math.Round(v)) }

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return len(p), nil
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

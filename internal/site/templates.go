package site

const tmplBase = `
{{define "base"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>{{.Title}}</title>
</head>
<body data-pinned-distance="{{.PinnedDistance}}" data-completion="{{.Completion}}">
<svg class="loop-visualizer" viewBox="0 0 400 400" aria-hidden="true">
<circle class="loop-ring" cx="200" cy="200" r="120" fill="none" stroke="#ffffff" stroke-width="2"/>
<circle class="loop-marker" cx="200" cy="80" r="6" fill="#ffffff"/>
<text class="loop-label" x="200" y="205" text-anchor="middle"></text>
</svg>
<main>
{{range .Blocks}}{{template "block" .}}{{end}}
</main>
<script>{{template "script"}}</script>
</body>
</html>{{end}}
`

const tmplBlocks = `
{{define "block"}}
{{- if eq .Kind "tech_stack"}}{{template "tech" .}}
{{- else if eq .Kind "case_studies"}}{{template "cases" .}}
{{- else if eq .Kind "testimonials"}}{{template "testimonials" .}}
{{- else if eq .Kind "problem"}}{{template "problem" .}}
{{- else}}{{template "section" .}}{{end}}
{{- end}}

{{define "section"}}<section id="{{.Section.ID}}" data-section="{{.Section.ID}}"{{if .Section.Type}} data-type="{{.Section.Type}}"{{end}}>
{{with .Section.Headline}}<h2>{{.}}</h2>{{end}}
{{with .Section.Subheadline}}<p class="subheadline">{{.}}</p>{{end}}
{{range .Section.Copy}}<p>{{.}}</p>{{end}}
{{with .Section.Bullets}}<ul>{{range .}}<li>{{icon "Check" 14}} {{.}}</li>{{end}}</ul>{{end}}
{{with .Section.Micro}}<p class="micro">{{.}}</p>{{end}}
{{with .Section.CTA}}<a class="cta" href="#problem">{{.}} {{icon "ArrowRight" 16}}</a>{{end}}
</section>{{end}}

{{define "problem"}}<section id="{{.Section.ID}}" data-section="{{.Section.ID}}" data-pinned="true">
<h2>{{.Section.Headline}}</h2>
<div class="card-stack">
{{$total := len .Cards}}{{range $i, $c := .Cards}}<article class="card" data-card="{{$i}}">
<span class="card-icon">{{icon $c.Icon 20}}</span>
<span class="card-index">{{pad (add $i 1)}} / {{pad $total}}</span>
<h3>{{$c.Title}}</h3>
<p>{{$c.Text}}</p>
<p class="subtext">{{$c.Subtext}}</p>
</article>
{{end}}</div>
<div class="progress"><div class="progress-fill"></div><span class="progress-label">0%</span></div>
</section>{{end}}

{{define "tech"}}<section class="tech-stack" data-section="tech_stack">
<span class="eyebrow">Orchestrated with Modern Autonomous Stack</span>
<ul>{{range .Tech}}<li>{{icon .Icon 18}} {{.Name}}</li>{{end}}</ul>
</section>{{end}}

{{define "cases"}}<section class="case-studies">
{{range .Cases}}<article class="case{{if .Featured}} featured{{end}}">
<span class="tag">{{.Tag}}</span>
<h3>{{.Title}}</h3>
<p class="duration">{{.Duration}}</p>
<p>{{.Challenge}}</p>
<p>{{.Solution}}</p>
<dl>{{range .Metrics}}<dt>{{.Value}}</dt><dd>{{.Label}}</dd>{{end}}</dl>
<blockquote>{{.Quote}}<cite>{{.Author}}</cite></blockquote>
</article>
{{end}}</section>{{end}}

{{define "testimonials"}}<section class="testimonials">
{{range .Testimonials}}<figure>
<img src="{{.Avatar}}" alt="{{.Name}}" width="48" height="48">
<blockquote>{{.Quote}}</blockquote>
<figcaption>{{.Name}}, {{.Role}}</figcaption>
</figure>
{{end}}</section>{{end}}
`

// tmplScript 上报区块几何并拉取置顶区块的帧。滚动事件合并到下一帧处理，
// 每类请求同一时刻至多一个在途，期间的变化在响应返回后补发一次。
const tmplScript = `
{{define "script"}}
(function () {
  var sessionID = null;
  var body = document.body;
  var pinned = document.querySelector('[data-pinned]');
  var fill = document.querySelector('.progress-fill');
  var label = document.querySelector('.progress-label');
  var cards = document.querySelectorAll('.card');
  var scheduled = false;
  var lastFrameY = null;
  var busy = {observe: false, frame: false};
  var dirty = {observe: false, frame: false};
  fetch('/api/v1/sessions', {method: 'POST'}).then(function (r) { return r.json(); }).then(function (s) { sessionID = s.id; schedule(); });

  function single(kind, send) {
    if (busy[kind]) { dirty[kind] = true; return; }
    busy[kind] = true;
    send().catch(function () {}).then(function () {
      busy[kind] = false;
      if (dirty[kind]) { dirty[kind] = false; schedule(); }
    });
  }

  function observe() {
    if (!sessionID) { return; }
    single('observe', function () {
      var vh = window.innerHeight;
      var list = [];
      document.querySelectorAll('section[data-section]').forEach(function (el) {
        var rect = el.getBoundingClientRect();
        list.push({section: el.dataset.section, top: rect.top, height: rect.height, viewport_height: vh});
      });
      return fetch('/api/v1/sessions/' + sessionID + '/observations', {method: 'POST', body: JSON.stringify(list)});
    });
  }

  function tick() {
    if (!pinned || window.scrollY === lastFrameY) { return; }
    single('frame', function () {
      var y = window.scrollY;
      var q = '?scroll_y=' + y + '&pin_start=' + (pinned.offsetTop) + '&pinned_distance=' + body.dataset.pinnedDistance;
      return fetch('/api/v1/narrative/frame' + q).then(function (r) { return r.json(); }).then(function (f) {
        lastFrameY = y;
        fill.style.transform = 'scaleX(' + f.fill + ')';
        label.textContent = f.label;
        f.cards.forEach(function (c, i) {
          cards[i].style.transform = 'translateY(' + c.y + 'px) scale(' + c.scale + ')';
          cards[i].style.opacity = c.opacity;
        });
        pinned.classList.toggle('completed', f.completed);
      });
    });
  }

  function schedule() {
    if (scheduled) { return; }
    scheduled = true;
    window.requestAnimationFrame(function () {
      scheduled = false;
      observe();
      tick();
    });
  }

  window.addEventListener('scroll', schedule, {passive: true});
  window.addEventListener('resize', function () { lastFrameY = null; schedule(); });
})();
{{end}}
`

package console

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/admingrid/admingrid/internal/grid"
)

type navItem struct {
	Name    string
	Title   string
	Current bool
}

type createField struct {
	Key      string
	Label    string
	Kind     grid.FieldKind
	Required bool
}

type pageData struct {
	Nav []navItem

	Name       string
	Title      string
	Label      string
	Search     string
	Table      template.HTML
	Pagination template.HTML
	Count      string

	StatusFilter bool
	ActiveOn     bool
	InactiveOn   bool

	CreateFields []createField
}

func (s *Server) nav(current string) []navItem {
	defs := s.registry.List()
	items := make([]navItem, 0, len(defs))
	for _, d := range defs {
		items = append(items, navItem{Name: d.Name, Title: d.Title, Current: d.Name == current})
	}
	return items
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, "index", pageData{Nav: s.nav("")}); err != nil {
		slog.Error("rendering index", "err", err)
	}
}

func (s *Server) pageHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gridFor(r.Context(), s.session(w, r), mux.Vars(r)["entity"])
	if !ok {
		http.NotFound(w, r)
		return
	}

	snap := g.orch.Snapshot()
	data := pageData{
		Nav:        s.nav(g.def.Name),
		Name:       g.def.Name,
		Title:      g.def.Title,
		Label:      g.def.Label,
		Search:     g.orch.Query().SearchTerm,
		Table:      template.HTML(snap.Table),
		Pagination: template.HTML(snap.Pagination),
		Count:      snap.Count,
	}
	if snap.Status != "" {
		data.StatusFilter = true
		data.ActiveOn = snap.Status != "inactive"
		data.InactiveOn = snap.Status != "active"
	}
	if g.def.Creatable() {
		for _, f := range g.def.CreateFields {
			data.CreateFields = append(data.CreateFields, createField{Key: f.Key, Label: f.Label, Kind: f.Kind, Required: f.Required})
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, "grid", data); err != nil {
		slog.Error("rendering grid page", "entity", g.def.Name, "err", err)
	}
}

var pages = template.Must(template.New("console").Parse(pagesHTML))

const pagesHTML = `{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{if .Title}}{{.Title}} · {{end}}Admin Console</title>
<style>
*,*::before,*::after{box-sizing:border-box;margin:0;padding:0}
:root{
  --bg:#f6f8fa;--bg-card:#ffffff;--border:#d0d7de;--text:#1f2328;--text-muted:#656d76;
  --primary:#0969da;--green:#1a7f37;--red:#cf222e;--radius:8px;--radius-sm:4px;
}
body{font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Helvetica,Arial,sans-serif;background:var(--bg);color:var(--text);line-height:1.5}
a{color:var(--primary);text-decoration:none}
button{cursor:pointer;font-family:inherit;font-size:inherit}
header{background:var(--bg-card);border-bottom:1px solid var(--border);padding:12px 24px}
header nav{display:flex;gap:16px;flex-wrap:wrap}
header nav a.current{font-weight:700;color:var(--text)}
.container{max-width:1400px;margin:0 auto;padding:24px}
.toolbar{display:flex;gap:12px;align-items:center;margin-bottom:16px;flex-wrap:wrap}
.toolbar input[type=search]{flex:1;min-width:200px;padding:6px 10px;border:1px solid var(--border);border-radius:var(--radius-sm)}
.chip{padding:2px 12px;border-radius:12px;border:1px solid var(--border);background:var(--bg-card);color:var(--text-muted)}
.chip.selected{border-color:var(--primary);color:var(--primary);font-weight:600}
.count{color:var(--text-muted);font-size:13px}
.grid-table{width:100%;border-collapse:collapse;background:var(--bg-card);border:1px solid var(--border);border-radius:var(--radius)}
.grid-th{text-align:left;padding:8px 12px;font-size:12px;text-transform:uppercase;color:var(--text-muted);border-bottom:1px solid var(--border)}
.grid-td{padding:8px 12px;border-bottom:1px solid var(--border)}
.nowrap{white-space:nowrap}.break-words{word-break:break-word}
.accordion-trigger{cursor:pointer}
.accordion-trigger.expanded{background:var(--bg)}
.hidden{display:none}
.chevron-icon{transition:transform .2s;fill:var(--text-muted)}.rotate-180{transform:rotate(180deg)}
.detail-table td{padding:4px 12px;vertical-align:top}
.edit-input{width:100%;padding:4px 8px;border:1px solid var(--border);border-radius:var(--radius-sm)}
.edit-input.invalid{border-color:var(--red)}
th[data-action=sort]{cursor:pointer}
th.sorted{color:var(--text)}
.badge{padding:2px 10px;border-radius:12px;font-size:12px;font-weight:600;border:1px solid}
.badge-active{color:var(--green)}.badge-inactive{color:var(--red)}
.no-data-cell{text-align:center;color:var(--text-muted);padding:24px}
.grid-error{padding:16px;color:var(--red);border:1px solid var(--red);border-radius:var(--radius)}
#grid-pagination{display:flex;gap:4px;margin-top:12px;align-items:center}
.page-btn{padding:4px 10px;border:1px solid var(--border);border-radius:var(--radius-sm);background:var(--bg-card)}
.page-btn.active{background:var(--primary);color:#fff;border-color:var(--primary)}
.page-btn:disabled{opacity:.5;cursor:default}
#page-input{width:56px;padding:3px 6px}
form.create{margin-top:24px;padding:16px;background:var(--bg-card);border:1px solid var(--border);border-radius:var(--radius);display:grid;gap:8px;max-width:520px}
#toasts{position:fixed;right:16px;bottom:16px;display:flex;flex-direction:column;gap:8px}
.toast{padding:8px 14px;border-radius:var(--radius);color:#fff;background:var(--green)}
.toast.error{background:var(--red)}.toast.info{background:var(--primary)}
</style>
</head>
<body>
<header><nav><a href="/"><strong>Admin Console</strong></a>
{{range .Nav}}<a href="/entities/{{.Name}}"{{if .Current}} class="current"{{end}}>{{.Title}}</a>
{{end}}</nav></header>
{{end}}

{{define "index"}}{{template "head" .}}
<div class="container">
<ul>
{{range .Nav}}<li><a href="/entities/{{.Name}}">{{.Title}}</a></li>
{{else}}<li>No entities configured.</li>
{{end}}</ul>
</div>
</body>
</html>
{{end}}

{{define "grid"}}{{template "head" .}}
<div class="container" id="grid-root" data-entity="{{.Name}}">
<h1>{{.Title}}</h1>
<div class="toolbar">
<input type="search" id="grid-search" placeholder="Search {{.Title}}" value="{{.Search}}" autocomplete="off">
{{if .StatusFilter}}<button type="button" class="chip{{if .ActiveOn}} selected{{end}}" data-status="active">Active</button>
<button type="button" class="chip{{if .InactiveOn}} selected{{end}}" data-status="inactive">Inactive</button>{{end}}
<span class="count">Total: <span id="grid-count">{{.Count}}</span></span>
</div>
<div id="grid-table">{{.Table}}</div>
<nav id="grid-pagination" aria-label="Pagination">{{.Pagination}}</nav>
{{if .CreateFields}}<form class="create" id="create-form">
<h2>New {{.Label}}</h2>
{{range .CreateFields}}<label>{{.Label}}{{if .Required}} *{{end}}
{{if eq .Kind "textarea"}}<textarea class="edit-input" name="{{.Key}}"></textarea>{{else if eq .Kind "checkbox"}}<input type="checkbox" name="{{.Key}}">{{else}}<input class="edit-input" type="text" name="{{.Key}}">{{end}}</label>
{{end}}<button type="submit">Create</button>
</form>{{end}}
</div>
<div id="toasts" aria-live="polite"></div>
<script>
(function(){
  var root=document.getElementById('grid-root'),base='/entities/'+root.dataset.entity;
  function post(path,data){
    var body=new URLSearchParams(data);
    return fetch(base+path,{method:'POST',body:body}).then(function(r){
      if(r.status===204)return null;
      return r.json();
    }).then(apply);
  }
  function apply(s){
    if(!s)return;
    if(s.table!==undefined){document.getElementById('grid-table').innerHTML=s.table}
    if(s.pagination!==undefined){document.getElementById('grid-pagination').innerHTML=s.pagination}
    if(s.count!==undefined&&s.count!==''){document.getElementById('grid-count').textContent=s.count}
    if(s.status){
      document.querySelectorAll('[data-status]').forEach(function(c){
        c.classList.toggle('selected',s.status==='both'||s.status===c.dataset.status);
      });
    }
    (s.toasts||[]).forEach(toast);
    return s;
  }
  function toast(n){
    var el=document.createElement('div');
    el.className='toast '+n.kind;el.textContent=n.message;
    document.getElementById('toasts').appendChild(el);
    setTimeout(function(){el.remove()},Math.max(n.duration/1e6,1000));
  }
  function rowId(el){var r=el.closest('[data-id]');return r?r.dataset.id:''}
  function onAction(e){
    var el=e.target.closest('[data-action]');
    if(!el||el.disabled)return;
    var a=el.dataset.action,data={action:a,id:rowId(el)};
    if(a==='input'){
      if(e.type!=='input'&&e.type!=='change')return;
      data.field=el.dataset.field;data.value=el.type==='checkbox'?String(el.checked):el.value;
    }else if(a==='page-input'){
      if(!(e.type==='change'||(e.type==='keydown'&&e.key==='Enter')))return;
      return post('/page',{page:el.value});
    }else if(e.type!=='click'){
      return;
    }
    if(a==='page'){data.page=el.dataset.page}
    if(a==='sort'){data.field=el.dataset.column}
    post('/action',data);
  }
  ['click','input','change','keydown'].forEach(function(t){
    document.getElementById('grid-table').addEventListener(t,onAction);
    document.getElementById('grid-pagination').addEventListener(t,onAction);
  });
  document.getElementById('grid-search').addEventListener('input',function(e){post('/search',{q:e.target.value})});
  document.querySelectorAll('[data-status]').forEach(function(c){
    c.addEventListener('click',function(){post('/status',{kind:c.dataset.status})});
  });
  var form=document.getElementById('create-form');
  if(form){form.addEventListener('submit',function(e){
    e.preventDefault();
    var btn=form.querySelector('button[type=submit]');
    btn.disabled=true;btn.textContent='Saving...';
    form.querySelectorAll('.invalid').forEach(function(f){f.classList.remove('invalid')});
    post('/rows',new FormData(form)).then(function(s){
      if(!s)return;
      (s.invalid||[]).forEach(function(key){
        var f=form.querySelector('[name="'+key+'"]');
        if(f)f.classList.add('invalid');
      });
      if(s.error){
        if(!(s.toasts||[]).length)toast({kind:'error',message:s.error,duration:3e9});
        return;
      }
      form.reset();
    }).finally(function(){btn.disabled=false;btn.textContent='Create'});
  })}
})();
</script>
</body>
</html>
{{end}}`

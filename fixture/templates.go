package fixture

import (
	"fmt"
	"html"
	"html/template"
)

var tmpls = template.Must(template.New("").Parse(`
{{define "comment"}}<li class="comment" data-id="{{.ID}}" id="comment-{{.ID}}">
<div class="comment-body"><small>{{.Author}}</small> {{.Body}}</div>
<p><a href="#" class="answer-button" id="answer{{.ID}}">reply</a></p>
<div class="comment-form-box"></div>
<ul class="comment-children">{{range .Children}}{{template "comment" .}}{{end}}</ul>
</li>{{end}}

{{define "curtain"}}<div class="post-off{{if .Status}} hidden{{end}}">This post is switched off.</div>{{end}}

{{define "status-form"}}<div class="post-buttons hidden">
<form class="status-form" action="/post/status/{{.Slug}}" method="post"><button type="submit">toggle status</button></form>
</div>{{end}}

{{define "post"}}<!DOCTYPE html>
<html>
<head>
<title>{{.Post.Title}}</title>
<meta name="csrf-token" content="{{.Token}}">
</head>
<body>
<div class="post-main-image">
<h1>{{.Post.Title}}</h1>
{{template "status-form" .Post}}
</div>
{{template "curtain" .Post}}
<p>{{.Post.Body}}</p>
<div class="comments">
{{range .Comments}}{{template "comment" .}}{{end}}
<div class="comment-form-box"></div>
</div>
{{.FormTemplate}}
</body>
</html>{{end}}

{{define "index"}}<!DOCTYPE html>
<html>
<head>
<title>Posts</title>
<meta name="csrf-token" content="{{.Token}}">
</head>
<body>
{{range .Posts}}<div class="short-post">
<h2><a href="/post/{{.Slug}}">{{.Title}}</a></h2>
{{template "curtain" .}}
{{template "status-form" .}}
</div>
{{end}}
<div class="photo-thumbnail"><img src="/static/cover.png" alt="cover"><span class="to-clipboard hidden"><a href="#">copy link</a></span></div>
</body>
</html>{{end}}
`))

// the reply form template is raw markup the client instantiates, so it is
// written outside the escaper
const formScript = `<script type="text/html" id="comment-form-template">
<div class="form-box">
<form class="commentForm" action="/post/comment" method="post">
<input type="hidden" id="parent_id" name="parent_id">
<input type="hidden" name="post" value="%s">
<textarea id="body_md" name="body_md" placeholder="write a comment"></textarea>
<button type="submit">Send</button>
</form>
</div>
</script>`

func formTemplate(slug string) template.HTML {
	return template.HTML(fmt.Sprintf(formScript, html.EscapeString(slug)))
}

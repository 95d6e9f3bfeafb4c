package webservices

import (
	"html/template"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi"
	"github.com/hocman2/funmap/viewer"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/logpkg"
)

// AdminService is a human readable overview of the working set, with the chunk previews
type AdminService struct {
	logger         *logpkg.Logger
	session        *viewer.Session
	apiURLBasePath string
	chi.Router
}

func NewAdminService(logger *logpkg.Logger, session *viewer.Session, apiURLBasePath string) *AdminService {
	as := &AdminService{logger, session, apiURLBasePath, chi.NewRouter()}

	as.Router.Get("/", as.handleGet)

	return as
}

type adminChunkType struct {
	Chunk      chunkType
	PreviewURL string
}

func (as *AdminService) handleGet(w http.ResponseWriter, r *http.Request) {
	var chunks []adminChunkType
	for _, c := range as.session.WorkingSet().Chunks() {
		chunks = append(chunks, adminChunkType{
			Chunk:      newChunkType(c),
			PreviewURL: as.apiURLBasePath + "/chunks/" + c.ID() + "/preview.png",
		})
	}

	stats := as.session.Stats()

	data := map[string]interface{}{
		"Chunks":         chunks,
		"Batches":        humanize.Comma(int64(stats.Batches)),
		"Generated":      humanize.Comma(int64(stats.Generated)),
		"Failed":         humanize.Comma(int64(stats.Failed)),
		"Evicted":        humanize.Comma(int64(stats.Evicted)),
		"APIURLBasePath": as.apiURLBasePath,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := adminTmpl.Execute(w, data)
	if err != nil {
		errorsx.HTTPError(w, as.logger, errorsx.Wrap(err), http.StatusInternalServerError)
		return
	}
}

var adminTmpl *template.Template

func init() {
	var err error
	adminTmpl, err = template.New("admin/index.html").Parse(adminTemplate)
	if err != nil {
		panic(err)
	}
}

const adminTemplate = `
<html>
	<head>
		<title>funmap admin</title>
		<style type="text/css">
		div {
			margin: 10px;
			border: 1px solid grey;
			padding: 10px;
		}
		.chunk {
			display: inline-block;
			vertical-align: top;
		}
		</style>
		<script>
		function retryInvalidChunks() {
			fetch('{{.APIURLBasePath}}/chunks/retry', {method: 'POST'})
				.then(resp => resp.json())
				.then(body => alert(body.reset + ' chunks will be built again'))
				.catch(e => {
					console.error(e);
					alert('failed to retry the invalid chunks: ' + e);
				});
		}
		</script>
	</head>
	<body>
		<h1>Map build</h1>
		<div>
			<p>Batches started: {{.Batches}}</p>
			<p>Chunks generated: {{.Generated}}</p>
			<p>Chunks failed: {{.Failed}}</p>
			<p>Chunks evicted: {{.Evicted}}</p>
			<button onclick="retryInvalidChunks()">Retry invalid chunks</button>
		</div>

		<div>
			<h2>Working set</h2>
			<sub>Refresh page for updates</sub>
			<br/>
			{{range .Chunks}}
				<div class="chunk">
					<h3>{{.Chunk.ID}}</h3>
					<p>Status: {{.Chunk.Status}}</p>
					<p>Buildings: {{.Chunk.MeshCount}}, roads: {{.Chunk.RoadCount}}</p>
					<img src="{{.PreviewURL}}" width="128" height="128" />
				</div>
			{{end}}
		</div>
	</body>
</html>
`

package panel

import (
	"html/template"
	"log/slog"
	"net/http"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <style>
        html, body { margin: 0; height: 100%; font-family: sans-serif; }
        header {
            display: flex; align-items: center; justify-content: space-between;
            padding: 6px 12px; background: #1f2937; color: #f9fafb; font-size: 13px;
        }
        header button { background: none; border: 1px solid #6b7280; color: inherit; border-radius: 4px; cursor: pointer; }
        #frame { border: 0; width: 100%; height: calc(100% - 34px); }
        #closed { display: none; padding: 40px; text-align: center; color: #6b7280; }
        body.closed #frame { display: none; }
        body.closed #closed { display: block; }
        #notice {
            position: fixed; right: 12px; bottom: 12px; max-width: 360px; display: none;
            padding: 8px 12px; border-radius: 4px; background: #374151; color: #f9fafb; font-size: 13px;
        }
        #notice.error { background: #b91c1c; }
    </style>
</head>
<body class="closed">
    <header>
        <span id="title">{{.Title}}</span>
        <button id="close" type="button">Close</button>
    </header>
    <iframe id="frame" sandbox="allow-scripts"></iframe>
    <div id="notice"></div>
    <div id="closed">No preview is open. Run "show preview" on a sitedog.yml file.</div>
    <script>
        const frame = document.getElementById("frame");
        const eventsURL = {{.EventsURL}};
        const closeURL = {{.CloseURL}};
        let panelID = "";
        let revision = "";

        const events = new EventSource(eventsURL);
        events.addEventListener("panel.state", (e) => {
            const st = JSON.parse(e.data);
            if (st.open) {
                panelID = st.id;
                document.body.classList.remove("closed");
            } else if (st.id === panelID) {
                document.body.classList.add("closed");
                frame.srcdoc = "";
                revision = "";
            }
        });
        events.addEventListener("panel.content", (e) => {
            const snap = JSON.parse(e.data);
            if (snap.revision === revision) {
                return;
            }
            panelID = snap.id;
            revision = snap.revision;
            document.body.classList.remove("closed");
            frame.srcdoc = snap.html;
        });
        events.addEventListener("panel.reveal", () => window.focus());
        events.addEventListener("panel.message", (e) => {
            if (frame.contentWindow) {
                frame.contentWindow.postMessage(JSON.parse(e.data), "*");
            }
        });
        const notice = document.getElementById("notice");
        let noticeTimer = 0;
        events.addEventListener("panel.notice", (e) => {
            const msg = JSON.parse(e.data);
            notice.textContent = msg.text;
            notice.className = msg.severity;
            notice.style.display = "block";
            clearTimeout(noticeTimer);
            noticeTimer = setTimeout(() => { notice.style.display = "none"; }, 5000);
        });
        document.getElementById("close").addEventListener("click", () => {
            fetch(closeURL, {
                method: "POST",
                headers: {"Content-Type": "application/json"},
                body: JSON.stringify({id: panelID}),
            });
        });
    </script>
</body>
</html>
`))

// PageHandler serves the panel host page. The page subscribes to
// eventsURL and posts to closeURL when the user closes the panel. The
// page's own query string (an access token, for instance) is forwarded to
// both.
func PageHandler(title, eventsURL, closeURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, closeTo := eventsURL, closeURL
		if q := r.URL.RawQuery; q != "" {
			events += "?" + q
			closeTo += "?" + q
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		err := pageTemplate.Execute(w, struct {
			Title     string
			EventsURL string
			CloseURL  string
		}{title, events, closeTo})
		if err != nil {
			slog.Error("panel page render failed", slog.String("error", err.Error()))
		}
	}
}

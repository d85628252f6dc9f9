// Package templates holds the HTML surface of the service. The index page is
// a single self-contained component: the client-side script submits the form,
// then follows the job over the SSE progress stream.
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// IndexPage renders the submission form with live progress handling.
func IndexPage() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, indexHTML)
		return err
	})
}

const indexHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>URL → MP3</title>
  <meta name="viewport" content="width=device-width,initial-scale=1"/>
  <style>
    :root { font-family: Inter, system-ui, -apple-system, "Segoe UI", Roboto, Arial; }
    body { background:#f6f8fb; color:#0f1724; display:flex; align-items:center; justify-content:center; min-height:100vh; margin:0; padding:20px; }
    .card { width:100%; max-width:820px; background:white; border-radius:12px; box-shadow:0 6px 22px rgba(15,23,36,0.08); padding:28px; }
    h1 { margin:0 0 6px 0; font-size:20px; }
    p.lead { margin:0 0 18px 0; color:#475569; }
    .input-row { display:flex; gap:10px; margin-bottom:12px; }
    input[type="text"] { flex:1; padding:12px 14px; border-radius:10px; border:1px solid #e6e9ef; font-size:15px; }
    button { padding:10px 14px; border-radius:10px; border:0; background:#0ea5a4; color:white; font-weight:600; cursor:pointer; }
    button:disabled { opacity:0.6; cursor:not-allowed; }
    .progress { height:14px; background:#eef2ff; border-radius:999px; overflow:hidden; margin-top:16px; display:none; }
    .progress > div { height:100%; width:0%; background:linear-gradient(90deg,#06b6d4,#0ea5a4); text-align:center; font-size:12px; color:white; line-height:14px; transition:width .2s ease; }
    .status { margin-top:8px; color:#334155; font-size:13px; }
    a.download-link { display:inline-block; margin-top:16px; background:#111827; color:white; padding:8px 12px; border-radius:8px; text-decoration:none; }
    .error { color:#b91c1c; }
    footer { margin-top:18px; color:#94a3b8; font-size:12px; }
  </style>
</head>
<body>
  <div class="card">
    <h1>🎵 URL → MP3</h1>
    <p class="lead">Paste a video link and get an MP3 with live conversion progress.</p>

    <form id="dlForm">
      <div class="input-row">
        <input id="url" type="text" placeholder="https://www.youtube.com/watch?v=..." required/>
        <button id="dlBtn" type="submit">Download MP3</button>
      </div>
    </form>

    <div class="progress" id="progressWrap"><div id="progressBar">0%</div></div>
    <div class="status" id="statusText"></div>
    <div id="result"></div>
    <footer>Converted files are removed automatically after a short while.</footer>
  </div>

<script>
document.getElementById('dlForm').addEventListener('submit', async function (e) {
  e.preventDefault();
  const url = document.getElementById('url').value.trim();
  if (!url) return;

  const bar = document.getElementById('progressBar');
  const status = document.getElementById('statusText');
  const result = document.getElementById('result');
  const btn = document.getElementById('dlBtn');

  result.innerHTML = '';
  document.getElementById('progressWrap').style.display = 'block';
  bar.style.width = '0%';
  bar.textContent = '0%';
  status.textContent = 'Contacting server...';
  btn.disabled = true;

  let data;
  try {
    const res = await fetch('/start_download', { method: 'POST', body: new URLSearchParams({ url }) });
    data = await res.json();
    if (!res.ok) {
      status.innerHTML = '<span class="error">' + (data.error || 'Unknown error') + '</span>';
      btn.disabled = false;
      return;
    }
  } catch (err) {
    status.textContent = 'Request failed';
    btn.disabled = false;
    return;
  }

  const source = new EventSource('/progress/' + encodeURIComponent(data.download_id));
  source.onmessage = function (event) {
    const msg = JSON.parse(event.data);
    const pct = msg.progress || 0;
    bar.style.width = pct + '%';
    bar.textContent = pct + '%';
    status.textContent = msg.status;

    if (msg.status === 'done') {
      source.close();
      const name = msg.filename || data.filename;
      result.innerHTML = '<a class="download-link" href="/downloads/' + encodeURIComponent(name) + '" download>⬇ Download MP3</a>';
      status.textContent = 'Completed ✔';
      btn.disabled = false;
    }
    if (msg.status === 'error') {
      source.close();
      result.innerHTML = '<div class="error">Error: ' + (msg.error || 'Unknown') + '</div>';
      status.textContent = 'Failed';
      btn.disabled = false;
    }
  };
  source.onerror = function () {
    status.textContent = 'Connection lost or finished.';
  };
});
</script>
</body>
</html>
`

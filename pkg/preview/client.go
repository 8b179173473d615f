package preview

const clientScriptPath = "/livereload.js"

// clientScript connects back to /livereload on the page's own host and
// reloads the page on every reload message, reconnecting after restarts.
const clientScript = `(() => {
  if (window.__THEMEPIPE_LR__) return;
  window.__THEMEPIPE_LR__ = true;
  const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
  let delay = 500;
  function connect() {
    const ws = new WebSocket(proto + '//' + location.host + '/livereload');
    ws.onopen = () => { delay = 500; };
    ws.onmessage = (e) => {
      try {
        const msg = JSON.parse(e.data);
        if (msg.command === 'reload') {
          console.log('[themepipe] reloading');
          location.reload();
        }
      } catch (_) {}
    };
    ws.onclose = () => {
      setTimeout(connect, delay);
      delay = Math.min(delay * 2, 5000);
    };
  }
  connect();
})();
`

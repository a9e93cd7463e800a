package app

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Lendwatch</title>
    <style>
        :root {
            --bg-primary: #0d1117;
            --bg-secondary: #161b22;
            --bg-tertiary: #21262d;
            --border-color: #30363d;
            --text-primary: #c9d1d9;
            --text-secondary: #8b949e;
            --text-heading: #f0f6fc;
            --accent-blue: #58a6ff;
            --accent-green: #3fb950;
            --accent-red: #f85149;
            --accent-yellow: #d29922;
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, monospace;
            background: var(--bg-primary);
            color: var(--text-primary);
            padding: 20px;
            line-height: 1.5;
        }
        h1 { color: var(--accent-blue); margin-bottom: 4px; font-size: 24px; }
        .sub { color: var(--text-secondary); margin-bottom: 20px; font-size: 13px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(280px, 1fr)); gap: 16px; margin-bottom: 16px; }
        .card {
            background: var(--bg-secondary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 16px;
        }
        .card h3 { color: var(--accent-blue); font-size: 15px; margin-bottom: 10px; }
        .stat-row { display: flex; justify-content: space-between; padding: 5px 0; border-bottom: 1px solid var(--bg-tertiary); }
        .stat-row:last-child { border-bottom: none; }
        .stat-label { color: var(--text-secondary); }
        .stat-value { color: var(--text-heading); font-weight: 600; }
        .green { color: var(--accent-green); }
        .red { color: var(--accent-red); }
        .yellow { color: var(--accent-yellow); }
        .kpi { font-size: 28px; color: var(--accent-green); }
        table { width: 100%; border-collapse: collapse; font-size: 13px; }
        th, td { text-align: left; padding: 8px 10px; border-bottom: 1px solid var(--bg-tertiary); }
        th { color: var(--text-secondary); cursor: pointer; user-select: none; white-space: nowrap; }
        th:hover { color: var(--accent-blue); }
        tbody tr { cursor: pointer; }
        tbody tr:hover { background: var(--bg-tertiary); }
        .placeholder td { color: var(--text-secondary); font-style: italic; cursor: default; }
        .controls { display: flex; flex-wrap: wrap; gap: 8px; margin-bottom: 12px; align-items: center; }
        input, select, button {
            background: var(--bg-tertiary);
            color: var(--text-primary);
            border: 1px solid var(--border-color);
            border-radius: 6px;
            padding: 6px 10px;
            font-size: 13px;
        }
        button { cursor: pointer; }
        button:hover { border-color: var(--accent-blue); }
        #chart { margin-top: 10px; }
        #chart svg { width: 100%; height: 120px; }
        .logline { font-size: 11px; color: var(--text-secondary); white-space: pre-wrap; }
    </style>
</head>
<body>
    <h1>Lendwatch</h1>
    <div class="sub">
        link: <span id="link" class="red">connecting...</span>
        &nbsp;|&nbsp; uptime <span id="uptime">-</span>
        &nbsp;|&nbsp; <button onclick="manualRefresh()">Refresh</button>
    </div>

    <div class="grid">
        <div class="card">
            <h3>Market</h3>
            <div class="kpi" id="bestApr">-</div>
            <div class="stat-row"><span class="stat-label">Opportunities</span><span class="stat-value" id="oppCount">-</span></div>
            <div class="stat-row"><span class="stat-label">Updated</span><span class="stat-value" id="updatedAt">-</span></div>
        </div>
        <div class="card">
            <h3>Collector</h3>
            <div class="stat-row"><span class="stat-label">State</span><span class="stat-value" id="collectorState">-</span></div>
            <div class="stat-row"><span class="stat-label">Observations</span><span class="stat-value" id="collectorObs">-</span></div>
            <div class="stat-row"><span class="stat-label">Tokens</span><span class="stat-value" id="collectorTokens">-</span></div>
        </div>
        <div class="card">
            <h3>Sniper Bot</h3>
            <div class="stat-row"><span class="stat-label">State</span><span class="stat-value" id="botState">-</span></div>
            <div class="stat-row"><span class="stat-label">Status</span><span class="stat-value" id="botMsg">-</span></div>
            <div id="botLogs" class="logline"></div>
            <div class="controls" style="margin-top:8px">
                <input id="botToken" placeholder="token" size="6">
                <input id="botAmount" placeholder="amount" size="8">
                <input id="botLtv" placeholder="ltv" size="5" value="0.65">
                <button onclick="startBot()">Start</button>
                <button onclick="stopBot()">Stop</button>
            </div>
        </div>
        <div class="card">
            <h3>Browser Session</h3>
            <div class="stat-row"><span class="stat-label">Session</span><span class="stat-value" id="sessionState">-</span></div>
            <div class="stat-row"><span class="stat-label">Age</span><span class="stat-value" id="sessionAge">-</span></div>
            <div class="stat-row"><span class="stat-label">Cookies</span><span class="stat-value" id="sessionCookies">-</span></div>
            <div class="controls" style="margin-top:8px">
                <button onclick="browserLogin('qr')">QR Login</button>
                <button onclick="browserLogin('chrome')">Chrome Login</button>
            </div>
        </div>
    </div>

    <div class="card" style="margin-bottom:16px">
        <h3>Opportunities</h3>
        <div class="controls">
            <select id="fSource">
                <option value="all">all sources</option>
                <option value="okx">OKX</option>
                <option value="binance">Binance</option>
            </select>
            <input id="fMinApr" placeholder="min APR" size="7">
            <input id="fSearch" placeholder="search token" size="12">
            <select id="fAvail">
                <option value="any">any</option>
                <option value="available">available</option>
                <option value="unavailable">unavailable</option>
            </select>
            <input id="fLoan" placeholder="loan size" size="9" value="1000">
            <button onclick="applyFilters()">Apply</button>
            <span class="stat-label"><span id="shownCount">0</span> shown</span>
        </div>
        <table>
            <thead><tr>
                <th onclick="sortBy('currency')">Token</th>
                <th onclick="sortBy('gate_apr')">Gate APR</th>
                <th onclick="sortBy('borrow_rate')">Borrow</th>
                <th onclick="sortBy('net_apr')">Net APR</th>
                <th onclick="sortBy('effective_ev')">EV</th>
                <th>Source</th>
                <th>Avail</th>
                <th onclick="sortBy('okx_avail_loan')">Capacity</th>
                <th onclick="sortBy('daily_earnings')">Daily $</th>
            </tr></thead>
            <tbody id="rows"></tbody>
        </table>
        <div id="chart"></div>
    </div>

    <div class="card">
        <h3>Predictions <button onclick="loadPredictions()" style="float:right">Load</button></h3>
        <table>
            <thead><tr><th>Token</th><th>APR</th><th>Regime</th><th>Signal</th><th>Confidence</th><th>Volatility</th></tr></thead>
            <tbody id="predRows"></tbody>
        </table>
    </div>

    <script>
        let ws = null;

        function connect() {
            ws = new WebSocket('ws://' + location.host + '/ws');
            ws.onmessage = (e) => render(JSON.parse(e.data));
            ws.onclose = () => {
                document.getElementById('link').textContent = 'dashboard disconnected';
                document.getElementById('link').className = 'red';
                setTimeout(connect, 2000);
            };
        }

        function render(stats) {
            const link = document.getElementById('link');
            link.textContent = stats.transport.state;
            link.className = stats.transport.state === 'connected' ? 'green' : 'red';
            document.getElementById('uptime').textContent = stats.uptime;

            if (stats.view) {
                document.getElementById('bestApr').textContent = stats.view.kpi.best_net_apr.toFixed(2) + '%';
                document.getElementById('oppCount').textContent = stats.view.kpi.count;
                document.getElementById('updatedAt').textContent = stats.view.kpi.updated_at || '-';
                renderRows(stats.view);
            }

            renderCollector(stats.collector);
            renderBot(stats.bot);
            renderSession(stats.session);
        }

        function renderRows(v) {
            const body = document.getElementById('rows');
            document.getElementById('shownCount').textContent = v.filtered_count;
            if (!v.rows || v.rows.length === 0) {
                body.innerHTML = '<tr class="placeholder"><td colspan="9">no opportunities match the current filters</td></tr>';
                return;
            }
            body.innerHTML = v.rows.map(r =>
                '<tr onclick="showHistory(\'' + r.currency + '\')">' +
                '<td>' + r.currency + '</td>' +
                '<td>' + r.gate_apr.toFixed(2) + '%</td>' +
                '<td>' + r.effective_borrow.toFixed(2) + '%</td>' +
                '<td class="green">' + r.net_apr.toFixed(2) + '%</td>' +
                '<td>' + r.effective_ev.toFixed(2) + '</td>' +
                '<td>' + (r.best_loan_source || '-') + '</td>' +
                '<td>' + (r.available ? '<span class="green">yes</span>' : '<span class="red">no</span>') + '</td>' +
                '<td>' + r.okx_avail_loan.toFixed(0) + '</td>' +
                '<td>$' + r.daily_earnings.toFixed(2) + '</td>' +
                '</tr>').join('');
        }

        function renderCollector(c) {
            document.getElementById('collectorState').innerHTML = c.online ? '<span class="green">online</span>' : '<span class="red">offline</span>';
            document.getElementById('collectorObs').textContent = c.stats ? c.stats.total_observations : '-';
            document.getElementById('collectorTokens').textContent = c.stats ? c.stats.unique_tokens : '-';
        }

        function renderBot(b) {
            const state = document.getElementById('botState');
            if (!b.online) { state.innerHTML = '<span class="red">offline</span>'; return; }
            state.innerHTML = b.status && b.status.running ? '<span class="green">running</span>' : 'idle';
            document.getElementById('botMsg').textContent = b.status ? (b.status.status_msg || '-') : '-';
            const logs = b.status && b.status.logs ? b.status.logs.slice(-5) : [];
            document.getElementById('botLogs').textContent = logs.join('\n');
        }

        function renderSession(s) {
            const state = document.getElementById('sessionState');
            if (!s.online) { state.innerHTML = '<span class="red">offline</span>'; return; }
            const exists = s.session && s.session.session_exists;
            state.innerHTML = exists ? '<span class="green">active</span>' : 'none';
            const age = document.getElementById('sessionAge');
            age.textContent = s.age || '-';
            age.className = s.stale ? 'stat-value yellow' : 'stat-value';
            document.getElementById('sessionCookies').textContent = s.session ? s.session.cookie_count : '-';
        }

        function post(path, body) {
            return fetch(path, {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify(body || {})
            }).then(r => r.json());
        }

        function manualRefresh() { post('/api/refresh'); }

        function applyFilters() {
            post('/api/filters', {
                source: document.getElementById('fSource').value,
                min_net_apr: parseFloat(document.getElementById('fMinApr').value) || 0,
                search: document.getElementById('fSearch').value,
                availability: document.getElementById('fAvail').value,
                loan_size: parseFloat(document.getElementById('fLoan').value) || 0
            });
        }

        function sortBy(column) { post('/api/sort', {column: column}); }

        function startBot() {
            post('/api/bot/start', {
                token: document.getElementById('botToken').value,
                amount: parseFloat(document.getElementById('botAmount').value) || 0,
                ltv: parseFloat(document.getElementById('botLtv').value) || 0,
                use_browser: true,
                sniper_mode: true
            }).then(r => { if (r.message) alert(r.message); });
        }

        function stopBot() { post('/api/bot/stop'); }

        function browserLogin(method) {
            post('/api/browser/login', {method: method}).then(r => { if (r.message) alert(r.message); });
        }

        function showHistory(token) {
            fetch('/api/history/' + token + '?hours=24')
                .then(r => r.json())
                .then(h => drawChart(token, h));
        }

        // Replace any previous chart before drawing the new one.
        function drawChart(token, history) {
            const el = document.getElementById('chart');
            el.innerHTML = '';
            if (!history.data || history.data.length === 0) {
                el.innerHTML = '<span class="stat-label">no history data for ' + token + '</span>';
                return;
            }
            const values = history.data.map(p => p.net_apr);
            const min = Math.min(...values), max = Math.max(...values);
            const span = max - min || 1;
            const w = 600, h = 110;
            const pts = values.map((v, i) =>
                (i * w / (values.length - 1 || 1)).toFixed(1) + ',' + (h - (v - min) / span * 100).toFixed(1)
            ).join(' ');
            let label = token + ' net APR, ' + history.hours + 'h';
            if (history.trend) label += ' (' + history.trend.trend + ')';
            el.innerHTML =
                '<span class="stat-label">' + label + '</span>' +
                '<svg viewBox="0 0 ' + w + ' ' + (h + 10) + '" preserveAspectRatio="none">' +
                '<polyline fill="none" stroke="#58a6ff" stroke-width="2" points="' + pts + '"/></svg>';
        }

        function loadPredictions() {
            fetch('/api/predictions?limit=20')
                .then(r => r.json())
                .then(preds => {
                    const body = document.getElementById('predRows');
                    if (!preds || preds.length === 0) {
                        body.innerHTML = '<tr class="placeholder"><td colspan="6">no predictions</td></tr>';
                        return;
                    }
                    body.innerHTML = preds.map(p =>
                        '<tr><td>' + p.token + '</td>' +
                        '<td>' + p.current_apr.toFixed(2) + '%</td>' +
                        '<td>' + p.regime + '</td>' +
                        '<td>' + p.signal + '</td>' +
                        '<td>' + (p.confidence * 100).toFixed(0) + '%</td>' +
                        '<td>' + p.volatility.toFixed(2) + '</td></tr>').join('');
                });
        }

        connect();
    </script>
</body>
</html>`

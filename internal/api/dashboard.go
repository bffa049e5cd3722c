package api

const dashboardHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Cricket Stream Dashboard</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #f5f5f5; }
        .container { max-width: 1200px; margin: 0 auto; padding: 20px; }
        .header { background: white; padding: 20px; border-radius: 8px; margin-bottom: 20px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .stats-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(220px, 1fr)); gap: 20px; margin-bottom: 20px; }
        .stat-card { background: white; padding: 20px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .stat-number { font-size: 2em; font-weight: bold; color: #0a7d3b; }
        .stat-label { color: #666; margin-top: 5px; }
        .section { background: white; padding: 20px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 8px; border-bottom: 1px solid #eee; font-size: 0.9em; }
        td.link { max-width: 420px; overflow: hidden; text-overflow: ellipsis; white-space: nowrap; }
        .OK { color: #0a7d3b; font-weight: bold; }
        .DEAD { color: #c33; font-weight: bold; }
        .TEST { color: #888; }
        .loading { text-align: center; padding: 40px; color: #666; }
        .error { background: #fee; color: #c33; padding: 15px; border-radius: 4px; margin: 10px 0; }
        .controls { margin-bottom: 20px; }
        .btn { background: #0a7d3b; color: white; border: none; padding: 10px 20px; border-radius: 4px; cursor: pointer; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Cricket Stream Dashboard</h1>
            <p>Latest m3u8 link per server slot</p>
        </div>

        <div class="stats-grid" id="stats-grid">
            <div class="loading">Loading statistics...</div>
        </div>

        <div class="controls">
            <button class="btn" onclick="refreshData()">Refresh</button>
            <button class="btn" onclick="window.open('/api/export/csv', '_blank')">Export CSV</button>
        </div>

        <div class="section">
            <h2>Server Slots</h2>
            <div id="links-container"><div class="loading">Loading links...</div></div>
        </div>
    </div>

    <script>
        async function loadStats() {
            try {
                const data = await (await fetch('/api/stats')).json();
                if (!data.success) throw new Error(data.error);
                const s = data.data;
                document.getElementById('stats-grid').innerHTML = [
                    [s.total_links || 0, 'Slots'],
                    [s.ok_links || 0, 'Live (OK)'],
                    [s.dead_links || 0, 'Dead'],
                    [Math.round(s.success_rate || 0) + '%', 'Scrape Success Rate'],
                ].map(([n, l]) => '<div class="stat-card"><div class="stat-number">' + n + '</div><div class="stat-label">' + l + '</div></div>').join('');
            } catch (error) {
                document.getElementById('stats-grid').innerHTML = '<div class="error">Failed to load statistics: ' + error.message + '</div>';
            }
        }

        async function loadLinks() {
            try {
                const data = await (await fetch('/api/links')).json();
                if (!data.success) throw new Error(data.error);
                const container = document.getElementById('links-container');
                if (data.data.length === 0) {
                    container.innerHTML = '<p>No links yet. Run the scraper first.</p>';
                    return;
                }
                container.innerHTML = '<table><tr><th>Slot</th><th>Name</th><th>Status</th><th>Link</th><th>Last Checked</th></tr>' +
                    data.data.map(l => '<tr><td>' + l.slot + '</td><td>' + l.name + '</td><td class="' + l.status + '">' + l.status +
                        '</td><td class="link">' + l.link + '</td><td>' + new Date(l.lastCheckedAt).toLocaleString() + '</td></tr>').join('') +
                    '</table>';
            } catch (error) {
                document.getElementById('links-container').innerHTML = '<div class="error">Failed to load links: ' + error.message + '</div>';
            }
        }

        function refreshData() {
            loadStats();
            loadLinks();
        }

        document.addEventListener('DOMContentLoaded', refreshData);
    </script>
</body>
</html>
`

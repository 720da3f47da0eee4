package preview

import "html/template"

var cardsTemplate = template.Must(template.New("cards").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <link rel="stylesheet" href="{{.StylesheetURL}}" />
    <style>
        @import url("https://fonts.googleapis.com/css2?family=Inter:wght@400;500;600&display=swap");

        :root {
            --bg-body: #f4f6f8;
            --bg-card: #ffffff;
            --border: #e0e3e7;
            --text-main: #111827;
            --text-muted: #6b7280;
            --accent: #f4b760;
            --error-color: #e53935;
        }

        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }

        body {
            font-family: 'Inter', sans-serif;
            background-color: var(--bg-body);
            color: var(--text-main);
            padding: 20px;
        }

        .preview-container {
            background-color: var(--bg-card);
            border-radius: 8px;
            padding: 20px;
            box-shadow: 0 1px 3px rgba(0, 0, 0, 0.1);
        }

        .error-message {
            color: var(--error-color);
            padding: 1rem;
            text-align: center;
            font-size: 14px;
        }

        #card-container {
            min-height: 200px;
        }
    </style>
</head>
<body>
    <div class="preview-container">
        <div id="card-container"></div>
    </div>

    <script src="{{.YAMLScriptURL}}"></script>
    <script src="{{.RenderScriptURL}}"></script>
    <script>
        const cardContainer = document.getElementById("card-container");
        let yamlContent = {{.YAML}};

        function showError(prefix, detail) {
            const el = document.createElement("div");
            el.className = "error-message";
            el.textContent = prefix + detail;
            cardContainer.replaceChildren(el);
        }

        function updateCards() {
            try {
                renderCards(yamlContent, cardContainer, (config, result, error) => {
                    if (!result) {
                        showError("Render Error: ", error);
                    }
                });
            } catch (error) {
                showError("Error: ", error && error.message ? error.message : error);
            }
        }

        updateCards();

        window.addEventListener("message", (event) => {
            const message = event.data;
            if (message && message.command === "update" && typeof message.yaml === "string") {
                yamlContent = message.yaml;
                updateCards();
            }
        });
    </script>
</body>
</html>
`))

var errorTemplate = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}} - Error</title>
    <style>
        body {
            font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
            background-color: #f5f5f5;
            padding: 20px;
        }
        .error-container {
            background-color: #fff;
            border-left: 4px solid #e53935;
            padding: 20px;
            border-radius: 4px;
            box-shadow: 0 1px 3px rgba(0, 0, 0, 0.1);
        }
        .error-title {
            color: #e53935;
            font-size: 18px;
            font-weight: 600;
            margin-bottom: 10px;
        }
        .error-message {
            color: #333;
            font-size: 14px;
            line-height: 1.5;
            white-space: pre-wrap;
            font-family: ui-monospace, Menlo, Consolas, monospace;
        }
    </style>
</head>
<body>
    <div class="error-container">
        <div class="error-title">⚠️ Preview Error</div>
        <div class="error-message">{{.Message}}</div>
    </div>
</body>
</html>
`))

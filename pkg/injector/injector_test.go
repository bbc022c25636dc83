package injector

import (
	"context"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const indexTemplate = `<html>
<head>
    <!-- injector:css -->
    <!-- endinjector -->
</head>
<body>
    <!-- injector:js -->
    <!-- endinjector -->
    <!-- injector:bower:js -->
    <!-- endinjector -->
</body>
</html>
`

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// chdir switches to dir for the duration of the test. Tests using it must not run in parallel.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestRun(t *testing.T) {
	t.Run("injects sources grouped by extension", func(t *testing.T) {
		dir := t.TempDir()
		chdir(t, dir)
		writeFile(t, "src/a.js", "")
		writeFile(t, "src/b.css", "")
		writeFile(t, "src/c.js", "")
		writeFile(t, "src/readme.txt", "")
		writeFile(t, "index.html", indexTemplate)

		in := New(Options{IgnorePaths: []string{"src"}}, nil)
		report, err := in.Run(context.Background(), []FileGroup{{
			Sources: []string{"src/a.js", "src/b.css", "src/c.js", "src/readme.txt"},
			Dest:    "index.html",
		}})
		require.NoError(t, err)
		require.NoError(t, report.Err())

		want := `<html>
<head>
    <!-- injector:css -->
    <link rel="stylesheet" href="/b.css">
    <!-- endinjector -->
</head>
<body>
    <!-- injector:js -->
    <script src="/a.js"></script>
    <script src="/c.js"></script>
    <!-- endinjector -->
    <!-- injector:bower:js -->
    <!-- endinjector -->
</body>
</html>
`
		assert.Equal(t, want, readFile(t, "index.html"))

		require.Len(t, report.Groups, 1)
		assert.True(t, report.Groups[0].Written)
		assert.Equal(t, []TagSummary{{Key: "js", Files: 2}, {Key: "css", Files: 1}}, report.Groups[0].Tags)
	})

	t.Run("second run is byte identical", func(t *testing.T) {
		dir := t.TempDir()
		chdir(t, dir)
		writeFile(t, "a.js", "")
		writeFile(t, "b.css", "")
		writeFile(t, "index.html", indexTemplate)

		in := New(Options{}, nil)
		groups := []FileGroup{{Sources: []string{"a.js", "b.css"}, Dest: "index.html"}}

		_, err := in.Run(context.Background(), groups)
		require.NoError(t, err)
		first := readFile(t, "index.html")

		_, err = in.Run(context.Background(), groups)
		require.NoError(t, err)
		assert.Equal(t, first, readFile(t, "index.html"))
	})

	t.Run("writes to separate template and destination", func(t *testing.T) {
		dir := t.TempDir()
		chdir(t, dir)
		writeFile(t, "a.js", "")
		writeFile(t, "template.html", "<!-- injector:js --><!-- endinjector -->")

		in := New(Options{Template: "template.html", DestFile: "out/index.html"}, nil)
		_, err := in.Run(context.Background(), []FileGroup{{Sources: []string{"a.js"}, Dest: "ignored.html"}})
		require.NoError(t, err)

		assert.Equal(t, "<!-- injector:js -->\n<script src=\"/a.js\"></script>\n<!-- endinjector -->", readFile(t, "out/index.html"))
		assert.Equal(t, "<!-- injector:js --><!-- endinjector -->", readFile(t, "template.html"))
		assert.NoFileExists(t, "ignored.html")
	})

	t.Run("missing template fails only its group", func(t *testing.T) {
		dir := t.TempDir()
		chdir(t, dir)
		writeFile(t, "a.js", "")
		writeFile(t, "ok.html", "<!-- injector:js --><!-- endinjector -->")

		core, logs := observer.New(zapcore.WarnLevel)
		in := New(Options{}, zap.New(core))
		report, err := in.Run(context.Background(), []FileGroup{
			{Sources: []string{"a.js"}, Dest: "missing.html"},
			{Sources: []string{"a.js"}, Dest: "ok.html"},
		})
		require.NoError(t, err)

		require.Len(t, report.Groups, 2)
		assert.ErrorIs(t, report.Groups[0].Err, ErrMissingTemplate)
		assert.False(t, report.Groups[0].Written)
		assert.NoFileExists(t, "missing.html")
		assert.True(t, report.Groups[1].Written)
		assert.Contains(t, readFile(t, "ok.html"), "/a.js")

		assert.ErrorIs(t, report.Err(), ErrMissingTemplate)
		assert.Len(t, report.Failed(), 1)
		assert.Equal(t, 1, logs.FilterMessage("Could not find template, injection not possible").Len())
	})

	t.Run("missing source is a warning", func(t *testing.T) {
		dir := t.TempDir()
		chdir(t, dir)
		writeFile(t, "a.js", "")
		writeFile(t, "index.html", "<!-- injector:js --><!-- endinjector -->")

		core, logs := observer.New(zapcore.WarnLevel)
		report, err := New(Options{}, zap.New(core)).Run(context.Background(), []FileGroup{
			{Sources: []string{"gone.js", "a.js"}, Dest: "index.html"},
		})
		require.NoError(t, err)
		require.NoError(t, report.Err())

		require.Len(t, report.Warnings(), 1)
		assert.Equal(t, MissingSource, report.Warnings()[0].Kind)
		assert.Equal(t, "gone.js", report.Warnings()[0].Path)
		assert.Equal(t, 1, logs.FilterMessage("Source file not found").Len())
		assert.Equal(t, "<!-- injector:js -->\n<script src=\"/a.js\"></script>\n<!-- endinjector -->", readFile(t, "index.html"))
	})

	t.Run("dropped files leave markers untouched", func(t *testing.T) {
		dir := t.TempDir()
		chdir(t, dir)
		writeFile(t, "logo.png", "")
		template := "<!-- injector:png -->\nkeep\n<!-- endinjector -->"
		writeFile(t, "index.html", template)

		report, err := New(Options{}, nil).Run(context.Background(), []FileGroup{
			{Sources: []string{"logo.png"}, Dest: "index.html"},
		})
		require.NoError(t, err)
		assert.Empty(t, report.Groups[0].Tags)
		assert.Equal(t, template, readFile(t, "index.html"))
	})

	t.Run("tag state does not leak between groups", func(t *testing.T) {
		dir := t.TempDir()
		chdir(t, dir)
		writeFile(t, "a.js", "")
		writeFile(t, "b.js", "")
		writeFile(t, "one.html", "<!-- injector:js --><!-- endinjector -->")
		writeFile(t, "two.html", "<!-- injector:js --><!-- endinjector -->")

		_, err := New(Options{}, nil).Run(context.Background(), []FileGroup{
			{Sources: []string{"a.js"}, Dest: "one.html"},
			{Sources: []string{"b.js"}, Dest: "two.html"},
		})
		require.NoError(t, err)
		assert.NotContains(t, readFile(t, "two.html"), "/a.js")
		assert.Contains(t, readFile(t, "two.html"), "/b.js")
	})

	t.Run("cancelled context stops before next group", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		report, err := New(Options{}, nil).Run(ctx, []FileGroup{{Dest: "never.html"}})
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, report.Groups)
	})
}

func TestRunMinified(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, "foo.js", "")
	writeFile(t, "foo.min.js", "")
	writeFile(t, "bar.js", "")
	template := "<!-- injector:js --><!-- endinjector -->"

	tests := []struct {
		name string
		min  bool
		want string
	}{
		{"enabled", true, "<!-- injector:js -->\n<script src=\"/foo.min.js\"></script>\n<script src=\"/bar.js\"></script>\n<!-- endinjector -->"},
		{"disabled", false, "<!-- injector:js -->\n<script src=\"/foo.js\"></script>\n<script src=\"/bar.js\"></script>\n<!-- endinjector -->"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diags, err := New(Options{Min: tt.min}, nil).InjectString(template, []string{"foo.js", "bar.js"})
			require.NoError(t, err)
			assert.Empty(t, diags)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunBower(t *testing.T) {
	t.Run("expands manifest in place under prefixed keys", func(t *testing.T) {
		dir := bowerProject(t,
			`{"dependencies":{"widget":"*"}}`,
			map[string]string{"widget": `{"main":["dist/widget.js","dist/widget.css","dist/gone.js"]}`},
			"widget/dist/widget.js", "widget/dist/widget.css")
		chdir(t, dir)
		writeFile(t, "app.js", "")
		writeFile(t, "late.js", "")

		template := "<!-- injector:js --><!-- endinjector -->\n" +
			"<!-- injector:bower:js --><!-- endinjector -->\n" +
			"<!-- injector:bower:css --><!-- endinjector -->"

		core, logs := observer.New(zapcore.WarnLevel)
		in := New(Options{}, zap.New(core))
		got, diags, err := in.InjectString(template, []string{"app.js", "bower.json", "late.js"})
		require.NoError(t, err)

		want := "<!-- injector:js -->\n<script src=\"/app.js\"></script>\n<script src=\"/late.js\"></script>\n<!-- endinjector -->\n" +
			"<!-- injector:bower:js -->\n<script src=\"/bower_components/widget/dist/widget.js\"></script>\n<!-- endinjector -->\n" +
			"<!-- injector:bower:css -->\n<link rel=\"stylesheet\" href=\"/bower_components/widget/dist/widget.css\">\n<!-- endinjector -->"
		assert.Equal(t, want, got)

		require.Len(t, diags, 1)
		assert.Equal(t, MissingManifestEntry, diags[0].Kind)
		assert.Equal(t, 1, logs.FilterMessage("Dependency main file not found").Len())
	})

	t.Run("uses configured prefix and ignore path", func(t *testing.T) {
		dir := bowerProject(t,
			`{"dependencies":{"lib":"*"}}`,
			map[string]string{"lib": `{"main":"lib.js"}`},
			"lib/lib.js")
		chdir(t, dir)

		in := New(Options{
			IgnorePaths: []string{"bower_components"},
			Bower:       BowerOptions{Prefix: "vendor-"},
		}, nil)
		got, _, err := in.InjectString("<!-- injector:vendor-js --><!-- endinjector -->", []string{"bower.json"})
		require.NoError(t, err)

		assert.Equal(t, "<!-- injector:vendor-js -->\n<script src=\"/lib/lib.js\"></script>\n<!-- endinjector -->", got)
	})

	t.Run("ignore paths apply to resolved files relative to the project", func(t *testing.T) {
		dir := bowerProject(t,
			`{"dependencies":{"widget":"*"}}`,
			map[string]string{"widget": `{"main":"dist/widget.js"}`},
			"widget/dist/widget.js")
		chdir(t, dir)
		writeFile(t, "app/main.js", "")

		in := New(Options{IgnorePaths: []string{"app"}}, nil)
		got, _, err := in.InjectString(
			"<!-- injector:js --><!-- endinjector -->\n<!-- injector:bower:js --><!-- endinjector -->",
			[]string{"app/main.js", "bower.json"})
		require.NoError(t, err)

		want := "<!-- injector:js -->\n<script src=\"/main.js\"></script>\n<!-- endinjector -->\n" +
			"<!-- injector:bower:js -->\n<script src=\"/bower_components/widget/dist/widget.js\"></script>\n<!-- endinjector -->"
		assert.Equal(t, want, got)
	})

	t.Run("manifest in a subdirectory is relative to its directory", func(t *testing.T) {
		dir := t.TempDir()
		chdir(t, dir)
		writeFile(t, "web/bower.json", `{"dependencies":{"lib":"*"}}`)
		writeFile(t, "web/bower_components/lib/bower.json", `{"main":"lib.js"}`)
		writeFile(t, "web/bower_components/lib/lib.js", "")

		got, _, err := New(Options{}, nil).InjectString("<!-- injector:bower:js --><!-- endinjector -->", []string{"web/bower.json"})
		require.NoError(t, err)
		assert.Equal(t, "<!-- injector:bower:js -->\n<script src=\"/bower_components/lib/lib.js\"></script>\n<!-- endinjector -->", got)
	})

	t.Run("missing manifest fails the group", func(t *testing.T) {
		dir := t.TempDir()
		chdir(t, dir)
		writeFile(t, "a.js", "")
		writeFile(t, "index.html", "<!-- injector:js --><!-- endinjector -->")

		report, err := New(Options{}, nil).Run(context.Background(), []FileGroup{
			{Sources: []string{"a.js", "bower.json"}, Dest: "index.html"},
		})
		require.NoError(t, err)
		assert.ErrorIs(t, report.Groups[0].Err, ErrMissingManifest)
		assert.False(t, report.Groups[0].Written)
		assert.Equal(t, "<!-- injector:js --><!-- endinjector -->", readFile(t, "index.html"))
		for _, d := range report.Diagnostics {
			assert.NotEqual(t, MissingSource, d.Kind)
		}
	})

	t.Run("unreadable manifest fails the group", func(t *testing.T) {
		dir := t.TempDir()
		chdir(t, dir)
		writeFile(t, "bower.json", "{not json")
		writeFile(t, "index.html", "<!-- injector:js --><!-- endinjector -->")

		report, err := New(Options{}, nil).Run(context.Background(), []FileGroup{
			{Sources: []string{"bower.json"}, Dest: "index.html"},
		})
		require.NoError(t, err)
		assert.ErrorIs(t, report.Groups[0].Err, ErrMissingManifest)
		assert.False(t, report.Groups[0].Written)
	})
}

func TestRunPersistFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory permissions differ on windows")
	}
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, "a.js", "")
	writeFile(t, "index.html", "<!-- injector:js --><!-- endinjector -->")
	// A regular file where the destination directory should be.
	writeFile(t, "blocked", "")

	report, err := New(Options{Template: "index.html"}, nil).Run(context.Background(), []FileGroup{
		{Sources: []string{"a.js"}, Dest: "blocked/index.html"},
		{Sources: []string{"a.js"}, Dest: "index.html"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistFailure)
	require.Len(t, report.Groups, 1, "run aborts after a persist failure")
	assert.Equal(t, "<!-- injector:js --><!-- endinjector -->", readFile(t, "index.html"))
}

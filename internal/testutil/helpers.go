package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteTree creates files below root. Keys are slash separated paths relative
// to root; a key ending in "/" creates an empty directory.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			if err := os.MkdirAll(path, 0o750); err != nil {
				t.Fatalf("creating dir %s: %v", name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("creating dir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
}

// ReadFile returns the content of root/name or fails the test.
func ReadFile(t *testing.T, root, name string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return string(data)
}

// PulpSysroot lays out a minimal Pulp installation below root.
func PulpSysroot(t *testing.T, root string) {
	t.Helper()

	WriteTree(t, root, map[string]string{
		"etc/pulp/server.conf": "[database]\n" +
			"seeds: dbhost1:27017,dbhost2:27017\n" +
			"username: alice\n" +
			"password: s3cret\n" +
			"\n" +
			"[server]\n" +
			"server_name: pulp.example.com\n",
		"etc/pulp/repo_auth.conf":                          "[oauth]\noauth_key: pulp\noauth_secret: abcdef\n",
		"etc/pulp/admin/admin.conf":                        "[auth]\nusername: admin\npassword: hunter2\n",
		"etc/pulp/server/plugins.conf.d/yum_importer.json": "{\n    \"proxy_host\": \"proxy\",\n    \"proxy_password\": \"pr0xy\"\n}\n",
		"etc/pulp/server/plugins.conf.d/iso_importer.json": "{\n    \"max_speed\": 1000\n}\n",
		"etc/default/pulp_workers":                         "PULP_CONCURRENCY=4\n",
		"var/log/httpd/pulp-https.log":                     "GET /pulp/api/v2/ 200\n",
		"var/log/httpd/pulp-https.log-20261018":            "GET /pulp/api/v2/tasks/ 200\n",
		"var/log/httpd/pulp-http_error_ssl.log":            "[error] client denied\n",
		"var/log/httpd/access_log":                         "not collected\n",
	})
}

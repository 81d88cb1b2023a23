package e2e

import (
	"fmt"
	"net/http"
	"testing"
)

// BenchmarkUploadSmallFiles measures end-to-end upload throughput per store
func BenchmarkUploadSmallFiles(b *testing.B) {
	content := make([]byte, 4096)

	for _, config := range AllConfigurations() {
		config := config
		b.Run(config.Name, func(b *testing.B) {
			tc := NewTestContext(b, config)
			defer tc.Cleanup()

			if resp := tc.CreateFolder(alice, "/root", "bench"); resp.Status != http.StatusCreated {
				b.Fatalf("Failed to create folder: %d %s", resp.Status, resp.Body)
			}

			b.SetBytes(int64(len(content)))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				resp := tc.UploadFile(alice, http.MethodPost, "/root/bench", fmt.Sprintf("file%d.bin", i), content)
				if resp.Status != http.StatusCreated {
					b.Fatalf("Upload %d failed: %d %s", i, resp.Status, resp.Body)
				}
			}
		})
	}
}

package banner

import (
	"fmt"

	"constantdb/pkg/config"
)

const banner = `
 ██████╗ ██████╗ ███╗   ██╗███████╗████████╗ █████╗ ███╗   ██╗████████╗██████╗ ██████╗
██╔════╝██╔═══██╗████╗  ██║██╔════╝╚══██╔══╝██╔══██╗████╗  ██║╚══██╔══╝██╔══██╗██╔══██╗
██║     ██║   ██║██╔██╗ ██║███████╗   ██║   ███████║██╔██╗ ██║   ██║   ██║  ██║██████╔╝
██║     ██║   ██║██║╚██╗██║╚════██║   ██║   ██╔══██║██║╚██╗██║   ██║   ██║  ██║██╔══██╗
╚██████╗╚██████╔╝██║ ╚████║███████║   ██║   ██║  ██║██║ ╚████║   ██║   ██████╔╝██████╔╝
 ╚═════╝ ╚═════╝ ╚═╝  ╚═══╝╚══════╝   ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═══╝   ╚═╝   ╚═════╝ ╚═════╝
`

// PrintWithEff prints the startup banner using the effective config plus
// discovered constant counts.
func PrintWithEff(eff config.EffectiveConfigResult, version string, available, cached int) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:    %s\n", eff.Addr)
	fmt.Printf("Data Dir:  %s\n", eff.DataDir)
	if version != "" {
		fmt.Printf("Version:   %s\n", version)
	}
	fmt.Printf("Config:    %s\n", eff.Source)
	fmt.Printf("Chunk:     %d digits, verify every %d reads\n",
		eff.Config.Storage.ChunkSize.Int64(), eff.Config.Storage.VerifyEvery)

	fmt.Println("\n== Constants ==================================================")
	fmt.Printf("Available: %d  (cached: %d)\n", available, cached)

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET  /v1/constants                         - List known constants")
	fmt.Println("GET  /v1/constants/{id}/digits?start&length - Read a digit range")
	fmt.Println("GET  /v1/constants/{id}/search?sequence=... - Find a digit sequence")
	fmt.Println("GET  /v1/constants/{id}/status             - Storage snapshot")
	fmt.Println("POST /v1/admin/constants/{id}/cache        - Build derived caches")
	fmt.Println("GET  /v1/admin/constants/{id}/verify       - Audit chunk checksums")

	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl 'http://localhost%s/v1/constants/pi/digits?start=0&length=50'\n", portSuffix(eff))
	fmt.Printf("curl 'http://localhost%s/v1/constants/pi/search?sequence=14159'\n", portSuffix(eff))

	if eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != "" {
		fmt.Println("\n- TLS: configured")
	} else {
		fmt.Println("\n- TLS: unconfigured")
	}
	if eff.Config.Audit.Enabled {
		fmt.Printf("- Audit: enabled (cron=%s)\n", eff.Config.Audit.Cron)
	} else {
		fmt.Println("- Audit: disabled")
	}

	fmt.Println("\n== Logs: =================================================")
}

func portSuffix(eff config.EffectiveConfigResult) string {
	p := eff.Config.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf(":%d", p)
}

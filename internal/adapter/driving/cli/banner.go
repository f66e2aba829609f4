package cli

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/diillson/aws-pillar-scanner-go/pkg/version"
)

// displayWelcomeBanner exibe o banner de boas-vindas com informações de versão.
func displayWelcomeBanner(versionStr string) {
	banner := `
         /$$$$$$$  /$$ /$$ /$$                            /$$$$$$
        | $$__  $$|__/| $$| $$                           /$$__  $$
        | $$  \ $$ /$$| $$| $$  /$$$$$$   /$$$$$$       | $$  \__/  /$$$$$$$  /$$$$$$  /$$$$$$$
        | $$$$$$$/| $$| $$| $$ |____  $$ /$$__  $$      |  $$$$$$  /$$_____/ |____  $$| $$__  $$
        | $$____/ | $$| $$| $$  /$$$$$$$| $$  \__/       \____  $$| $$        /$$$$$$$| $$  \ $$
        | $$      | $$| $$| $$ /$$__  $$| $$             /$$  \ $$| $$       /$$__  $$| $$  | $$
        | $$      | $$| $$| $$|  $$$$$$$| $$            |  $$$$$$/|  $$$$$$$|  $$$$$$$| $$  | $$
        |__/      |__/|__/|__/ \_______/|__/             \______/  \_______/ \_______/|__/  |__/
        `
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	blue := color.New(color.FgBlue, color.Bold).SprintFunc()

	fmt.Println(cyan(banner))

	// Obtem a string formatada da versão através do pacote version
	formattedVersion := version.FormatVersion()
	fmt.Println(blue(fmt.Sprintf("AWS Well-Architected Pillar Scanner (v%s)", formattedVersion)))
}

/*
Copyright (c) 2019-2021 Andreas T Jonsson

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"strings"
	"text/template"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	defaultVersion = "0.1.0.0"
	startYear      = 2019
	copyrightFmt   = "Copyright (c) %v Andreas T Jonsson"
)

func main() {
	file := flag.String("file", "-", "Save the generated output to file.")
	pkg := flag.String("package", "version", "Package name of the generated output.")
	ver := flag.String("variable", "I8088_VERSION", "Environment variable containing the version number.")
	flag.Parse()

	hash, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		log.WithError(err).Warn("could not parse Git hash")
	}

	values := versionValues(os.Getenv(*ver), strings.TrimSpace(string(hash)), time.Now().Year())
	values["pkg"] = *pkg

	var out io.Writer = os.Stdout
	if *file != "-" {
		fs := afero.NewOsFs()
		if err := fs.MkdirAll(path.Dir(*file), 0777); err != nil {
			log.Fatal(err)
		}
		fp, err := fs.Create(*file)
		if err != nil {
			log.Fatal(err)
		}
		defer fp.Close()
		out = fp
	}

	if err := template.Must(template.New("version").Parse(content)).Execute(out, values); err != nil {
		log.Fatal(err)
	}
}

func versionValues(version, hash string, year int) map[string]interface{} {
	if version == "" {
		log.WithField("version", defaultVersion).Info("version is not set")
		version = defaultVersion
	}

	parts := strings.SplitN(version, ".", 4)
	if len(parts) != 4 {
		log.WithField("version", version).Warn("invalid version format")
		parts = strings.Split(defaultVersion, ".")
	}
	if parts[3] == "0" {
		parts[3] = ""
	}

	copyright := fmt.Sprintf(copyrightFmt, startYear)
	if year != startYear {
		copyright = fmt.Sprintf(copyrightFmt, fmt.Sprintf("%d-%d", startYear, year))
	}

	return map[string]interface{}{
		"hash":  hash,
		"major": parts[0],
		"minor": parts[1],
		"patch": parts[2],
		"build": parts[3],
		"copy":  copyright,
	}
}

var content = `/*
{{.copy}}

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

package {{.pkg}}

var (
	Current = Version{ {{.major}}, {{.minor}}, {{.patch}}, "{{.build}}" }
	Copyright = "{{.copy}}"
	Hash = "{{.hash}}"
)
`

package resourcepack

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"reflect"
	"regexp"
	"sort"

	"github.com/nsf/jsondiff"
	"github.com/pkg/errors"
)

var MajorMCVersions = []string{
	// may want to support some day: "1.7.10",
	"1.8.9",
	"1.9.4",
	"1.10.2",
	"1.11.2",
	"1.12.2",
	"1.13.2",
	"1.14.4",
	"1.15.2",
	"1.16.5",
	"1.17.1",
	"1.18.2",
	"1.19.4",
	"1.20.6",
	"1.21.10",
}

var manifestURL = "https://launchermeta.mojang.com/mc/game/version_manifest.json"

func jsonGrab(url string, val interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(val)
}

// DownloadMinecraftJar fetches the client jar of a release into dest, unless
// dest already exists. "latest" resolves to the latest release.
func DownloadMinecraftJar(dest, version string) error {
	if _, err := os.Stat(dest); err == nil {
		return nil
	}

	manifest := struct {
		Latest struct {
			Release string `json:"release"`
		} `json:"latest"`
		Versions []struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		}
	}{}
	err := jsonGrab(manifestURL, &manifest)
	if err != nil {
		return err
	}
	if version == "latest" {
		version = manifest.Latest.Release
		slog.Info("resolved latest release", "version", version)
	}
	versionManifestURL := ""
	for _, v := range manifest.Versions {
		if v.ID == version {
			versionManifestURL = v.URL
			break
		}
	}
	if versionManifestURL == "" {
		return errors.Errorf("unable to find release version %s", version)
	}

	versionManifest := struct {
		Downloads map[string]struct {
			URL string `json:"url"`
		} `json:"downloads"`
	}{}
	if err := jsonGrab(versionManifestURL, &versionManifest); err != nil {
		return errors.Wrapf(err, "unable to read manifest of %s", version)
	}

	clientJarURL := versionManifest.Downloads["client"].URL
	if clientJarURL == "" {
		return errors.Errorf("release %s has no client download", version)
	}

	resp, err := http.Get(clientJarURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("GET %s: %s", clientJarURL, resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	size, err := io.Copy(out, resp.Body)
	if err != nil {
		os.Remove(dest)
		return err
	}
	slog.Info("downloaded client jar", "version", version, "MiB", float64(size)/1024/1024)

	return nil
}

var assetRe = regexp.MustCompile(`^assets/(\w+)/(\w+)/(.*?)\.(.*)$`)

// VerifyPack decodes every blockstate, model and texture metadata file in a
// pack and encodes it again, reporting each file whose round trip loses or
// changes data.
func VerifyPack(pack Pack) (int, error) {
	names, err := pack.List()
	if err != nil {
		return 0, err
	}
	sort.Strings(names)

	mm := 0
	for _, name := range names {
		m := assetRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		kind, ext := m[2], m[4]
		var decode any
		switch {
		case kind == "blockstates" && ext == "json":
			decode = &BlockState{}
		case kind == "models" && ext == "json":
			decode = &Model{}
		case kind == "textures" && ext == "png.mcmeta":
			decode = &TextureMeta{}
		default:
			continue
		}

		f, err := pack.Open(name)
		if err != nil {
			return mm, err
		}
		data, err := f.ReadAll()
		if err != nil {
			return mm, err
		}
		if err := json.Unmarshal(data, decode); err != nil {
			return mm, errors.Wrapf(err, "unable to decode %s", f.Path())
		}

		var got, want any
		if err := json.Unmarshal(data, &want); err != nil {
			return mm, errors.Wrapf(err, "unable to decode %s", f.Path())
		}
		buf, err := json.Marshal(decode)
		if err != nil {
			return mm, errors.Wrapf(err, "unable to encode %s", f.Path())
		}
		json.Unmarshal(buf, &got)
		if !reflect.DeepEqual(got, want) {
			mm++
			opts := jsondiff.DefaultConsoleOptions()
			opts.CompareNumbers = func(a, b json.Number) bool {
				av, _ := a.Float64()
				bv, _ := b.Float64()
				return av == bv
			}
			diff, str := jsondiff.Compare(data, buf, &opts)
			slog.Warn("mismatch decoding", "file", f.Path(), "difference", diff.String(), "diff", str)
		}
	}
	if mm > 0 {
		slog.Warn("verified pack with mismatches", "pack", pack.Path(), "mismatches", mm)
	}
	return mm, nil
}

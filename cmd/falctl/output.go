package main

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/kbukum/falclient/httpclient"
	"github.com/kbukum/falclient/version"
)

// writeBody prints a successful response. Raw output is byte-exact; yaml
// output re-renders JSON bodies and falls back to raw for anything else.
func writeBody(w io.Writer, body []byte, format string) error {
	if format == outputYAML {
		if p := httpclient.DecodePayload(body); p.Kind != httpclient.PayloadUndecodable {
			out, err := yaml.Marshal(p.Value())
			if err != nil {
				return fmt.Errorf("render yaml: %w", err)
			}
			_, err = w.Write(out)
			return err
		}
	}
	_, err := w.Write(body)
	return err
}

type errorReport struct {
	Code    string `yaml:"code"`
	Status  int    `yaml:"status,omitempty"`
	Message string `yaml:"message"`
	URL     string `yaml:"url,omitempty"`
	Payload any    `yaml:"payload,omitempty"`
}

// writeError prints err to w. Dispatch errors are rendered as a yaml
// document; anything else as a single line.
func writeError(w io.Writer, err error) {
	var e *httpclient.Error
	if !errors.As(err, &e) {
		fmt.Fprintf(w, "%s: %v\n", serviceName, err)
		return
	}

	report := errorReport{
		Code:    e.Code.String(),
		Status:  e.StatusCode,
		Message: e.Message,
		URL:     e.URL,
		Payload: e.Payload.Value(),
	}
	if report.Payload == nil && len(e.Body) > 0 {
		report.Payload = string(e.Body)
	}
	out, mErr := yaml.Marshal(map[string]errorReport{"error": report})
	if mErr != nil {
		fmt.Fprintf(w, "%s: %v\n", serviceName, err)
		return
	}
	_, _ = w.Write(out)
}

func writeVersion(w io.Writer, format string) error {
	info := version.GetVersionInfo()
	if format == outputYAML {
		out, err := yaml.Marshal(info)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}
	_, err := fmt.Fprintf(w, "%s %s (%s)\n", serviceName, version.GetShortVersion(), info.Platform)
	return err
}

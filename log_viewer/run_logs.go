// log_viewer/run_logs.go

package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jamestexas/apex-log-parsin/internal/input"
)

// fetchPodLog reads the debug log output of the configured pod/container.
func (a *app) fetchPodLog(ctx context.Context) (document, error) {
	src := a.podSource()
	a.log.WithFields(logrus.Fields{
		"namespace": src.Namespace,
		"pod":       src.Pod,
		"container": src.Container,
	}).Info("using Kubernetes pod as input")

	clientset, err := a.kubeClient(src.Kubeconfig)
	if err != nil {
		return document{}, errors.Wrap(err, "creating Kubernetes client")
	}

	text, err := input.PodLogs(ctx, clientset, src)
	if err != nil {
		return document{}, err
	}
	return document{name: src.Name(), text: text}, nil
}

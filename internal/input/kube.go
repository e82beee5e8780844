package input

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	v1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// PodSource names the container whose output carries the debug logs.
type PodSource struct {
	Namespace  string
	Pod        string
	Container  string
	Kubeconfig string
}

// Valid reports whether enough is set to fetch logs.
func (p PodSource) Valid() bool {
	return p.Pod != ""
}

// Name returns a display name of the form namespace/pod[/container].
func (p PodSource) Name() string {
	ns := p.Namespace
	if ns == "" {
		ns = "default"
	}
	name := ns + "/" + p.Pod
	if p.Container != "" {
		name += "/" + p.Container
	}
	return name
}

// NewKubeClient initializes a Kubernetes client, supporting both in-cluster and
// local kubeconfig setups. An empty kubeconfig falls back to $KUBECONFIG and
// then ~/.kube/config.
func NewKubeClient(kubeconfig string) (kubernetes.Interface, error) {
	config, err := rest.InClusterConfig()
	if err != nil {
		if kubeconfig == "" {
			kubeconfig = os.Getenv("KUBECONFIG")
		}
		if kubeconfig == "" {
			home, _ := os.UserHomeDir()
			kubeconfig = filepath.Join(home, ".kube", "config")
		}
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load kubeconfig")
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Kubernetes client")
	}
	return clientset, nil
}

// PodLogs retrieves the full log output of a pod's container.
func PodLogs(ctx context.Context, client kubernetes.Interface, src PodSource) (string, error) {
	namespace := src.Namespace
	if namespace == "" {
		namespace = "default"
	}

	req := client.CoreV1().Pods(namespace).GetLogs(src.Pod, &v1.PodLogOptions{
		Container: src.Container,
	})
	stream, err := req.Stream(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "streaming logs from pod %s", src.Name())
	}
	defer stream.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(stream); err != nil {
		return "", errors.Wrapf(err, "reading logs from pod %s", src.Name())
	}
	return buf.String(), nil
}

package channel

import (
	"context"
	"errors"
	"net/url"

	"github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/httpstream"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/remotecommand"
	utilexec "k8s.io/client-go/util/exec"
)

// KubeChannel runs commands in pod containers through the exec subresource
// of the Kubernetes API
type KubeChannel struct {
	Log       *logrus.Entry
	config    *rest.Config
	clientset kubernetes.Interface
}

// NewKubeChannel loads a kubeconfig the same way kubectl does. An empty
// kubeconfig path falls back to $KUBECONFIG and ~/.kube/config, and an empty
// context name uses the current context.
func NewKubeChannel(log *logrus.Entry, kubeconfig string, kubeContext string) (*KubeChannel, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		loadingRules.ExplicitPath = kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: kubeContext}

	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
	if err != nil {
		return nil, err
	}

	return NewKubeChannelForConfig(log, config)
}

// NewKubeChannelForConfig builds a channel from an already resolved rest config
func NewKubeChannelForConfig(log *logrus.Entry, config *rest.Config) (*KubeChannel, error) {
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, err
	}

	return &KubeChannel{
		Log:       log,
		config:    config,
		clientset: clientset,
	}, nil
}

func (k *KubeChannel) Stream(ctx context.Context, req Request) error {
	execRequest := k.clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Name(req.Target.Pod).
		Namespace(req.Target.Namespace).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: req.Target.Container,
			Command:   req.Command,
			Stdin:     req.Stdin != nil,
			Stdout:    req.Stdout != nil,
			Stderr:    req.Stderr != nil,
			TTY:       req.TTY,
		}, scheme.ParameterCodec)

	executor, err := k.newExecutor(execRequest.URL())
	if err != nil {
		return err
	}

	err = executor.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdin:  req.Stdin,
		Stdout: req.Stdout,
		Stderr: req.Stderr,
		Tty:    req.TTY,
	})

	var exitErr utilexec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitStatus()}
	}
	return err
}

// newExecutor prefers the websocket protocol and drops back to SPDY when the
// API server refuses the upgrade, which is what kubectl does too
func (k *KubeChannel) newExecutor(u *url.URL) (remotecommand.Executor, error) {
	spdyExecutor, err := remotecommand.NewSPDYExecutor(k.config, "POST", u)
	if err != nil {
		return nil, err
	}

	websocketExecutor, err := remotecommand.NewWebSocketExecutor(k.config, "GET", u.String())
	if err != nil {
		return nil, err
	}

	return remotecommand.NewFallbackExecutor(websocketExecutor, spdyExecutor, func(err error) bool {
		if httpstream.IsUpgradeFailure(err) || httpstream.IsHTTPSProxyError(err) {
			k.Log.Debugf("falling back to SPDY exec: %v", err)
			return true
		}
		return false
	})
}

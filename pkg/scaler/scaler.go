package scaler

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// Executor adjusts the replica count of Kubernetes Deployments. One
// cluster Deployment backs each platform deployment, named
// "app-<deploymentId>" inside the configured namespace.
type Executor struct {
	clientset kubernetes.Interface
	namespace string
}

// NewExecutor builds an executor against the cluster. In-cluster
// config is tried first, then the default kubeconfig location.
func NewExecutor(kubeConfigPath, namespace string) (*Executor, error) {
	var config *rest.Config
	var err error

	if kubeConfigPath == "" {
		config, err = rest.InClusterConfig()
		if err != nil {
			home := homedir.HomeDir()
			if home == "" {
				return nil, fmt.Errorf("no kubeconfig found")
			}
			path := filepath.Join(home, ".kube", "config")
			config, err = clientcmd.BuildConfigFromFlags("", path)
			if err != nil {
				return nil, fmt.Errorf("failed to create Kubernetes client config: %v", err)
			}
		}
	} else {
		path := kubeConfigPath
		if strings.HasPrefix(path, "~/") {
			path = filepath.Join(homedir.HomeDir(), path[2:])
		}
		config, err = clientcmd.BuildConfigFromFlags("", path)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kubernetes client config: %v", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %v", err)
	}

	return &Executor{clientset: clientset, namespace: namespace}, nil
}

// NewExecutorWithClientset wires an existing clientset, used by tests
// with the fake clientset
func NewExecutorWithClientset(clientset kubernetes.Interface, namespace string) *Executor {
	return &Executor{clientset: clientset, namespace: namespace}
}

// Scale patches the replica count of the deployment's backing
// Kubernetes Deployment
func (e *Executor) Scale(ctx context.Context, deploymentID string, instances int) error {
	name := fmt.Sprintf("app-%s", deploymentID)
	patch := []byte(fmt.Sprintf(`{"spec":{"replicas":%d}}`, instances))

	_, err := e.clientset.AppsV1().Deployments(e.namespace).
		Patch(ctx, name, types.MergePatchType, patch, metav1.PatchOptions{})
	if err != nil {
		return fmt.Errorf("failed to scale %s/%s to %d replicas: %w", e.namespace, name, instances, err)
	}

	log.Printf("[Scaler] %s/%s scaled to %d replicas", e.namespace, name, instances)
	return nil
}

package kubernetes

import (
	"context"
	"testing"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	sandboxv1alpha1 "sigs.k8s.io/agent-sandbox/api/v1alpha1"
	extensionsv1alpha1 "sigs.k8s.io/agent-sandbox/extensions/api/v1alpha1"
)

func testScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	scheme, err := NewScheme()
	if err != nil {
		t.Fatalf("NewScheme: %v", err)
	}
	return scheme
}

// simulateReady creates a Sandbox resource with Ready=True for the given
// claim name, mimicking what the agent-sandbox controller does.
func simulateReady(t *testing.T, c client.Client, name, namespace, fqdn string) {
	t.Helper()
	sb := &sandboxv1alpha1.Sandbox{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
	}
	if err := c.Create(context.Background(), sb); err != nil {
		t.Fatalf("simulateReady: create sandbox: %v", err)
	}
	sb.Status.ServiceFQDN = fqdn
	sb.Status.Conditions = []metav1.Condition{
		{
			Type:               string(sandboxv1alpha1.SandboxConditionReady),
			Status:             metav1.ConditionTrue,
			LastTransitionTime: metav1.Now(),
			Reason:             "Ready",
		},
	}
	if err := c.Status().Update(context.Background(), sb); err != nil {
		t.Fatalf("simulateReady: update status: %v", err)
	}
}

func TestClaimAcquirerAcquireAndRelease(t *testing.T) {
	scheme := testScheme(t)
	c := fake.NewClientBuilder().WithScheme(scheme).WithStatusSubresource(&sandboxv1alpha1.Sandbox{}).Build()

	acquirer := NewClaimAcquirer(c, "py-sandbox", "default", 5*time.Second)

	origGen := generateClaimNameFn
	generateClaimNameFn = func() string { return "test-claim-001" }
	defer func() { generateClaimNameFn = origGen }()

	go func() {
		time.Sleep(200 * time.Millisecond)
		simulateReady(t, c, "test-claim-001", "default", "sandbox-001.default.svc.cluster.local")
	}()

	url, release, err := acquirer.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if url != "http://sandbox-001.default.svc.cluster.local:8080" {
		t.Errorf("url = %q, want http://sandbox-001.default.svc.cluster.local:8080", url)
	}

	claim := &extensionsv1alpha1.SandboxClaim{}
	if err := c.Get(context.Background(), client.ObjectKey{Name: "test-claim-001", Namespace: "default"}, claim); err != nil {
		t.Fatalf("SandboxClaim not found: %v", err)
	}
	if claim.Spec.TemplateRef.Name != "py-sandbox" {
		t.Errorf("templateRef = %q, want py-sandbox", claim.Spec.TemplateRef.Name)
	}

	release()

	if err := c.Get(context.Background(), client.ObjectKey{Name: "test-claim-001", Namespace: "default"}, claim); err == nil {
		t.Error("SandboxClaim still exists after release, expected deletion")
	}
}

func TestClaimAcquirerTimeout(t *testing.T) {
	scheme := testScheme(t)
	c := fake.NewClientBuilder().WithScheme(scheme).WithStatusSubresource(&sandboxv1alpha1.Sandbox{}).Build()

	acquirer := NewClaimAcquirer(c, "py-sandbox", "default", 1*time.Second)

	origGen := generateClaimNameFn
	generateClaimNameFn = func() string { return "test-claim-timeout" }
	defer func() { generateClaimNameFn = origGen }()

	// No Sandbox ever appears, so Acquire must time out and clean up.
	_, _, err := acquirer.Acquire(context.Background())
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}

	claim := &extensionsv1alpha1.SandboxClaim{}
	if err := c.Get(context.Background(), client.ObjectKey{Name: "test-claim-timeout", Namespace: "default"}, claim); err == nil {
		t.Error("SandboxClaim still exists after timeout, expected cleanup")
	}
}

func TestClaimAcquirerContextCancelled(t *testing.T) {
	scheme := testScheme(t)
	c := fake.NewClientBuilder().WithScheme(scheme).WithStatusSubresource(&sandboxv1alpha1.Sandbox{}).Build()

	acquirer := NewClaimAcquirer(c, "py-sandbox", "default", 30*time.Second)

	origGen := generateClaimNameFn
	generateClaimNameFn = func() string { return "test-claim-cancel" }
	defer func() { generateClaimNameFn = origGen }()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	_, _, err := acquirer.Acquire(ctx)
	if err == nil {
		t.Fatal("expected context cancellation error, got nil")
	}

	claim := &extensionsv1alpha1.SandboxClaim{}
	if err := c.Get(context.Background(), client.ObjectKey{Name: "test-claim-cancel", Namespace: "default"}, claim); err == nil {
		t.Error("SandboxClaim still exists after context cancel, expected cleanup")
	}
}

func TestIsReady(t *testing.T) {
	tests := []struct {
		name       string
		conditions []metav1.Condition
		want       bool
	}{
		{name: "no conditions", conditions: nil, want: false},
		{
			name: "ready true",
			conditions: []metav1.Condition{
				{Type: string(sandboxv1alpha1.SandboxConditionReady), Status: metav1.ConditionTrue},
			},
			want: true,
		},
		{
			name: "ready false",
			conditions: []metav1.Condition{
				{Type: string(sandboxv1alpha1.SandboxConditionReady), Status: metav1.ConditionFalse},
			},
			want: false,
		},
		{
			name: "other condition only",
			conditions: []metav1.Condition{
				{Type: "Available", Status: metav1.ConditionTrue},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sb := &sandboxv1alpha1.Sandbox{
				Status: sandboxv1alpha1.SandboxStatus{Conditions: tt.conditions},
			}
			if got := isReady(sb); got != tt.want {
				t.Errorf("isReady() = %v, want %v", got, tt.want)
			}
		})
	}
}

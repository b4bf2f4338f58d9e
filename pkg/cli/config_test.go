package cli

import "testing"

func TestTrustTargetID_FromArgument(t *testing.T) {
	app := testAppContext(t, "")

	id, err := trustTargetID(app, []string{"test1org/test1repo"})
	if err != nil {
		t.Fatalf("trustTargetID: %v", err)
	}
	if id.Org != "test1org" || id.Repo != "test1repo" {
		t.Errorf("trustTargetID = %+v", id)
	}
}

func TestTrustTargetID_NoArgsOutsideGitRepoFails(t *testing.T) {
	app := testAppContext(t, "")
	app.Workdir.Repo = nil

	if _, err := trustTargetID(app, nil); err == nil {
		t.Error("expected an error outside a git repository with no repo argument")
	}
}

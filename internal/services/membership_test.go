package services

import (
	"errors"
	"testing"

	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/pkg/response"
)

func inviteFixture(t *testing.T) (*MembershipService, *models.ProjectStageInstance, *models.User, *models.User) {
	t.Helper()

	db := setupTestDB(t)
	svc := NewMembershipService(db, nil)

	owner := createTestUser(t, db, "owner", "us")
	guest := createTestUser(t, db, "guest", "us")
	inst := createTestInstance(t, db, "group-1", models.StageDesign, owner.ID)
	addTestMember(t, db, inst.ID, owner.ID, models.RoleOwner, nil)
	return svc, inst, owner, guest
}

func TestInviteAndAccept(t *testing.T) {
	svc, inst, owner, guest := inviteFixture(t)

	n, err := svc.Invite(owner.ID, &InviteRequest{
		RecipientEmail: guest.Email,
		InstanceID:     inst.ID,
		Message:        "join us",
	})
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}
	if n.Type != models.NotificationTypeInvitation {
		t.Errorf("type = %q, expected invitation", n.Type)
	}

	if err := svc.Respond(n.ID, guest.ID, &RespondRequest{Response: models.ResponseAccepted}); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	var m models.ProjectMembership
	if err := svc.db.Where("instance_id = ? AND user_id = ?", inst.ID, guest.ID).First(&m).Error; err != nil {
		t.Fatalf("membership missing after accept: %v", err)
	}
	if m.Role != models.RoleMember {
		t.Errorf("role = %q, expected member", m.Role)
	}
	if m.ProgressStatus == nil || *m.ProgressStatus != models.ProgressNotStarted {
		t.Error("accepted invitee should start at not_started")
	}
}

func TestRespond_RepeatedAnswerIsNoOp(t *testing.T) {
	svc, inst, owner, guest := inviteFixture(t)

	n, err := svc.Invite(owner.ID, &InviteRequest{RecipientEmail: guest.Email, InstanceID: inst.ID})
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}

	accept := &RespondRequest{Response: models.ResponseAccepted}
	if err := svc.Respond(n.ID, guest.ID, accept); err != nil {
		t.Fatalf("first accept failed: %v", err)
	}
	if err := svc.Respond(n.ID, guest.ID, accept); err != nil {
		t.Fatalf("repeated accept should be a no-op, got %v", err)
	}

	var count int64
	svc.db.Model(&models.ProjectMembership{}).
		Where("instance_id = ? AND user_id = ?", inst.ID, guest.ID).
		Count(&count)
	if count != 1 {
		t.Errorf("membership rows = %d, expected 1", count)
	}

	// Changing the answer after the fact is refused.
	err = svc.Respond(n.ID, guest.ID, &RespondRequest{Response: models.ResponseRejected})
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 409 {
		t.Errorf("changed answer should conflict, got %v", err)
	}
}

func TestRespond_RejectCreatesNoMembership(t *testing.T) {
	svc, inst, owner, guest := inviteFixture(t)

	n, err := svc.Invite(owner.ID, &InviteRequest{RecipientEmail: guest.Email, InstanceID: inst.ID})
	if err != nil {
		t.Fatalf("Invite failed: %v", err)
	}

	if err := svc.Respond(n.ID, guest.ID, &RespondRequest{Response: models.ResponseRejected}); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	var count int64
	svc.db.Model(&models.ProjectMembership{}).
		Where("instance_id = ? AND user_id = ?", inst.ID, guest.ID).
		Count(&count)
	if count != 0 {
		t.Error("rejecting an invitation must not create a membership")
	}
}

func TestInvite_Rejections(t *testing.T) {
	svc, inst, owner, guest := inviteFixture(t)
	stranger := createTestUser(t, svc.db, "stranger", "us")

	// Non-members cannot invite.
	_, err := svc.Invite(stranger.ID, &InviteRequest{RecipientEmail: guest.Email, InstanceID: inst.ID})
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 403 {
		t.Errorf("stranger invite should be forbidden, got %v", err)
	}

	// Unknown recipient address.
	_, err = svc.Invite(owner.ID, &InviteRequest{RecipientEmail: "nobody@example.com", InstanceID: inst.ID})
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 404 {
		t.Errorf("unknown recipient should be not found, got %v", err)
	}

	// Existing members cannot be invited again.
	addTestMember(t, svc.db, inst.ID, guest.ID, models.RoleMember, models.Progress(models.ProgressNotStarted))
	_, err = svc.Invite(owner.ID, &InviteRequest{RecipientEmail: guest.Email, InstanceID: inst.ID})
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 409 {
		t.Errorf("inviting an existing member should conflict, got %v", err)
	}
}

func TestCompletionIsTerminal_RosterAdditionsRefused(t *testing.T) {
	db := setupTestDB(t)
	members := NewMembershipService(db, nil)
	stages := NewStageService(db)

	owner := createTestUser(t, db, "owner", "us")
	alice := createTestUser(t, db, "alice", "us")
	late := createTestUser(t, db, "late", "us")

	inst := createTestInstance(t, db, "group-1", models.StageDesign, owner.ID)
	addTestMember(t, db, inst.ID, owner.ID, models.RoleOwner, nil)
	addTestMember(t, db, inst.ID, alice.ID, models.RoleMember, models.Progress(models.ProgressStageComplete))

	before, err := stages.EvaluateCompletion(inst.ID)
	if err != nil {
		t.Fatalf("EvaluateCompletion failed: %v", err)
	}
	if !before.Complete {
		t.Fatal("sole contributor finished, stage should be complete")
	}

	// A finished stage takes no new members, by any path.
	var appErr *response.AppError
	_, err = members.AddMember(inst.ID, &AddMemberRequest{UserEmail: late.Email})
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 409 {
		t.Errorf("adding to a complete stage should conflict, got %v", err)
	}
	_, err = members.Invite(owner.ID, &InviteRequest{RecipientEmail: late.Email, InstanceID: inst.ID})
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 409 {
		t.Errorf("inviting to a complete stage should conflict, got %v", err)
	}

	// Even if a row slips in underneath, completion never flips back.
	addTestMember(t, db, inst.ID, late.ID, models.RoleMember, models.Progress(models.ProgressNotStarted))
	after, err := stages.EvaluateCompletion(inst.ID)
	if err != nil {
		t.Fatalf("EvaluateCompletion failed: %v", err)
	}
	if !after.Complete {
		t.Error("a complete stage must stay complete after roster changes")
	}
}

func TestAddAndRemoveMember(t *testing.T) {
	svc, inst, _, guest := inviteFixture(t)

	m, err := svc.AddMember(inst.ID, &AddMemberRequest{UserEmail: guest.Email, Role: models.RoleLeader})
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if m.Role != models.RoleLeader {
		t.Errorf("role = %q, expected leader", m.Role)
	}

	_, err = svc.AddMember(inst.ID, &AddMemberRequest{UserEmail: guest.Email})
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 409 {
		t.Errorf("duplicate add should conflict, got %v", err)
	}

	if err := svc.RemoveMember(inst.ID, guest.ID); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	if err := svc.RemoveMember(inst.ID, guest.ID); err == nil {
		t.Error("removing an absent membership should fail")
	}

	// A removed user can be re-added.
	if _, err := svc.AddMember(inst.ID, &AddMemberRequest{UserEmail: guest.Email}); err != nil {
		t.Fatalf("re-adding a removed member failed: %v", err)
	}
}

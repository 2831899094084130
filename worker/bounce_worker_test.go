package worker

import (
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
)

func TestIsBounceNotification(t *testing.T) {
	tests := []struct {
		name     string
		envelope *imap.Envelope
		want     bool
	}{
		{
			"mailer-daemon sender",
			&imap.Envelope{
				Subject: "Anything",
				From:    []*imap.Address{{MailboxName: "MAILER-DAEMON", HostName: "mx.acme.test"}},
			},
			true,
		},
		{
			"postmaster sender",
			&imap.Envelope{
				Subject: "Anything",
				From:    []*imap.Address{{MailboxName: "postmaster", HostName: "acme.test"}},
			},
			true,
		},
		{
			"undeliverable subject",
			&imap.Envelope{
				Subject: "Undeliverable: Email verification test",
				From:    []*imap.Address{{MailboxName: "noreply", HostName: "acme.test"}},
			},
			true,
		},
		{
			"delivery status notification subject",
			&imap.Envelope{
				Subject: "Delivery Status Notification (Failure)",
				From:    []*imap.Address{{MailboxName: "noreply", HostName: "acme.test"}},
			},
			true,
		},
		{
			"ordinary reply",
			&imap.Envelope{
				Subject: "Re: Email verification test",
				From:    []*imap.Address{{MailboxName: "john.doe", HostName: "acme.test"}},
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isBounceNotification(tt.envelope))
		})
	}
}

func TestBounceBodyExtraction(t *testing.T) {
	body := `The following message could not be delivered:

Final-Recipient: rfc822; john.doe@acme.test
Action: failed
Status: 5.1.1

Original message headers:
Message-ID: <b4c3a7de-1f9a-4f4c-9a6e-1a2b3c4d5e6f@sender.test>
Subject: Email verification test
`

	m := messageIDPattern.FindStringSubmatch(body)
	if assert.NotNil(t, m) {
		assert.Equal(t, "b4c3a7de-1f9a-4f4c-9a6e-1a2b3c4d5e6f@sender.test", m[1])
	}

	r := recipientPattern.FindStringSubmatch(body)
	if assert.NotNil(t, r) {
		assert.Equal(t, "john.doe@acme.test", r[1])
	}
}

func TestBounceBodyExtraction_XFailedRecipients(t *testing.T) {
	body := "This message was created automatically by mail delivery software.\n" +
		"X-Failed-Recipients: jane.smith@acme.test\n"

	r := recipientPattern.FindStringSubmatch(body)
	if assert.NotNil(t, r) {
		assert.Equal(t, "jane.smith@acme.test", r[1])
	}
}

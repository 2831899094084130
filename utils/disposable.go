// utils/disposable.go
package utils

import "strings"

var disposableDomains = loadDisposableDomains()

func IsDisposableDomain(domain string) bool {
	return disposableDomains[strings.ToLower(domain)]
}

func loadDisposableDomains() map[string]bool {
	domains := make(map[string]bool)
	for _, d := range strings.Split(disposableDomainList, "\n") {
		d = strings.TrimSpace(d)
		if d != "" {
			domains[d] = true
		}
	}
	return domains
}

const disposableDomainList = `
mailinator.com
mailinator.net
mailinator.org
tempmail.org
temp-mail.org
temp-mail.io
10minutemail.com
10minutemail.co.za
20minutemail.com
30minutemail.com
60minutemail.com
guerrillamail.com
guerrillamail.net
guerrillamail.org
guerrillamail.biz
guerrillamail.de
guerrillamailblock.com
sharklasers.com
trashmail.com
trashmail.net
trashmail.de
trashmail.me
trash-mail.com
trash-mail.at
trashymail.com
yopmail.com
yopmail.fr
yopmail.net
maildrop.cc
dispostable.com
fakeinbox.com
throwawaymail.com
throwawayemailaddress.com
mailnesia.com
getairmail.com
mytemp.email
fake-mail.com
mail-temp.com
tempail.com
tempomail.fr
tempinbox.com
tempmailaddress.com
tempmailer.com
tempmailer.de
tempmaildemo.com
temporaryinbox.com
temporaryemail.net
mailmetrash.com
discard.email
discardmail.com
discardmail.de
mailcatch.com
tempemail.net
tempemail.biz
mintemail.com
notmailinator.com
spamgourmet.com
spamhole.com
spam.la
spamspot.com
spambox.us
spamfree24.org
spamfree24.de
spam4.me
spamday.com
spamherelots.com
spamhereplease.com
suremail.info
mailsac.com
maildu.de
mailexpire.com
mailforspam.com
mailnull.com
meltmail.com
mohmal.com
mt2014.com
mycleaninbox.net
mytrashmail.com
neverbox.com
no-spam.ws
nospam4.us
nospammail.net
nowmymail.com
objectmail.com
oneoffemail.com
onewaymail.com
pookmail.com
proxymail.eu
quickinbox.com
rcpt.at
rejectmail.com
safetymail.info
selfdestructingmail.com
shitmail.me
sneakemail.com
snkmail.com
sofort-mail.de
sogetthis.com
spambob.com
spambog.com
spamcannon.com
spamcero.com
spamcorptastic.com
spamex.com
spamify.com
wegwerfemail.de
wegwerfmail.de
wegwerfmail.net
willselfdestruct.com
zehnminutenmail.de
zippymail.info
zoemail.org
`

package models

const AlertTitle = "NFT Minter Alert"
const InfoTitle = "NFT Minted"

const (
	AlertDesc_RunFailed = "Mint Failed"
	InfoDesc_Confirmed  = "Mint Confirmed"
)

const (
	AlertFmt_RunFailed string = "run %s (%s) failed at %s:\n%s"
	InfoFmt_Confirmed  string = "run %s (%s) minted %s in tx %s"
)

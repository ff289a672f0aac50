package pkgmgr

type yum struct{}

func (yum) Name() Name { return Yum }

func (yum) Install(packages []string) string {
	return Chain(
		"yum install -y -q \\\n"+List(packages),
		"yum clean all",
		"rm -rf /var/cache/yum/*",
	)
}

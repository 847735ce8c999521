/*
Package volume implements named volumes for the containerd engine.

Docker manages named volumes itself. containerd does not, so Burrow keeps each
volume as a directory on the host and bind mounts it into containers:

	/var/lib/burrow/volumes
	└── pg_data
	    └── _data      ← bind mounted at the service's mount target

Only the "local" driver exists. The Manager rejects any other driver name so a
stack written for Docker volume plugins fails loudly instead of silently
getting a local directory.

# Usage

	m, err := volume.NewManager(filepath.Join(dataDir, "volumes"))
	if err != nil {
		return err
	}
	if err := m.CreateVolume(&types.Volume{Name: "pg_data"}); err != nil {
		return err
	}
	path, err := m.MountVolume("pg_data")
*/
package volume

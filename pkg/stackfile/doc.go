/*
Package stackfile reads Burrow's native stack format.

A stack file is YAML that mirrors the stack model. Services are a list, so
declaration order is kept:

	name: shop
	volumes:
	  - name: data
	services:
	  - name: db
	    image: postgres:${PG_VERSION:-16.2}
	    environment:
	      POSTGRES_USER: shop
	      POSTGRES_PASSWORD: {secret: db-password, from_env: DB_PASSWORD}
	    mounts:
	      - data:/var/lib/postgresql/data
	    healthcheck:
	      cmd: pg_isready -U shop
	  - name: api
	    image: shop/api:1.4.0
	    ports: ["8080:80"]
	    command: serve --port 80
	    depends_on: [db]

${VAR} references are interpolated with compose semantics before parsing,
from the process environment and then the optional dotenv file. Write $$ for
a literal dollar sign. String commands and health check commands are split
with shell quoting rules. Environment values declared as secrets never leave
the types.Secret wrapper.
*/
package stackfile

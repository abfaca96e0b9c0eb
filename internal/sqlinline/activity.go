package sqlinline

const QInsertActivity = `--sql 2d84f5a6-0c9b-4e13-a7d8-61b3e29c50f4
insert into activity_log (user_id, action, entity_type, entity_id, country)
values ($1, $2, $3, $4, $5)
returning id, created_at;
`

const QListRecentActivity = `--sql 6b0a1d37-48e2-4c95-b3f6-9e75c802da41
select id, user_id, action, entity_type, entity_id, country, created_at
from activity_log
where user_id = $1
order by created_at desc
limit $2;
`
